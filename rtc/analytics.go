package rtc

// Analytics is a point-in-time snapshot of the usage tallies. It is derived
// state: the conversation log and the retained resource list are the source
// of truth, and a snapshot can be recomputed from them on demand.
type Analytics struct {
	TotalMessages  int `json:"totalMessages"`
	TextMessages   int `json:"textMessages"`
	VoiceMessages  int `json:"voiceMessages"`
	FilesProcessed int `json:"filesProcessed"`
}

// Snapshot assembles analytics from the live counters.
func Snapshot(convlog *Log, intake *Intake) Analytics {
	stats := convlog.Stats()
	return Analytics{
		TotalMessages:  stats.TotalMessages,
		TextMessages:   stats.TextMessages,
		VoiceMessages:  stats.VoiceMessages,
		FilesProcessed: intake.Count(),
	}
}

// RecomputeSnapshot rebuilds analytics from the log itself, bypassing the
// cached counters.
func RecomputeSnapshot(convlog *Log, intake *Intake) Analytics {
	stats := convlog.Recompute()
	return Analytics{
		TotalMessages:  stats.TotalMessages,
		TextMessages:   stats.TextMessages,
		VoiceMessages:  stats.VoiceMessages,
		FilesProcessed: intake.Count(),
	}
}
