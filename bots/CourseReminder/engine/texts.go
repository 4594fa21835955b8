package engine

const (
	txtWelcome = `同学你好！我是课程提醒机器人。把你的每周课表按下面的格式发给我，确认后我会在每节课开始前提醒你：

星期一
上课时间：第1-2节 (08:00-09:40)
课程名称：高等数学
教师：张老师
上课地点：教一101
周次：1-16周`
	txtHelp    = `直接发送课表文本即可更新课程。可用命令：
/list - 查看已保存的课表
/stop - 停止课程提醒
/help - 查看帮助`
	txtMediaNotSupported    = "暂不支持图片或文件，请以文本形式发送课表。"
	txtParseFailed          = "没有识别到课程信息，请按照格式重新发送课表（每天以“星期X”开头，每节课以“上课时间：”开头）。"
	txtFailedSaveCourses    = "课表保存失败，请稍后重试。"
	txtFailedFetchCourses   = "读取课表失败，请稍后重试。"
	txtFailedSaveSettings   = "设置保存失败，请稍后重试。"
	txtRemindersOn          = "已开启课程提醒！"
	txtCancelled            = "已取消本次操作。"
	txtRepromptConfirmation = `请回复"确认"或"取消"。`
	txtDailyOn              = "已开启次日课程提醒！"
	txtDailyOff             = "已关闭次日课程提醒。"
	txtRepromptDaily        = `请回复"是"或"否"。`
	txtNoCourses            = "你还没有保存课表，请发送课表文本。"
	txtYourCourses          = "你保存的课表：\n\n"
	txtRemindersStopped     = "已停止课程提醒。"
	txtNothingToStop        = "课程提醒没有开启。"
	txtShuttingDown         = "机器人正在重启，课程提醒将在重启后恢复。"

	fmtMalformedLine  = "第%d行“%s”缺少内容，请使用全角冒号“：”分隔字段名和内容后重新发送课表。"
	fmtMissingWeekday = "第%d行“%s”之前缺少“星期X”，请按照格式重新发送课表。"
	fmtConfirmation   = "请确认以下课程信息：\n\n%s回复“确认”开启课程提醒，回复“取消”放弃。"
)
