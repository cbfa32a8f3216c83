package radar

// Quality 每帧的质量标签（四选一，互斥）
type Quality string

const (
	// QualityBreathing 有呼吸结果且有有效呼吸率
	QualityBreathing Quality = "breathing"
	// QualityBreathingNoRate 有呼吸结果但暂时还没出 rate
	QualityBreathingNoRate Quality = "breathing_no_rate"
	// QualityPresenceOnly 只有 presence 结果
	QualityPresenceOnly Quality = "presence_only"
	// QualityNone 连 presence 也没有
	QualityNone Quality = "none"
)

// Classify 按固定优先级给一帧打质量标签
//
// 优先级：
//  1. 有 breathing_result 且 rate > 0 → breathing
//  2. 有 breathing_result 但无有效 rate → breathing_no_rate
//  3. 无 breathing_result 但有 presence_result → presence_only
//  4. 两者都无 → none
func Classify(f *ProcessedFrame) Quality {
	if f.BreathingResult != nil {
		if f.BreathingResult.BreathingRate != nil && *f.BreathingResult.BreathingRate > 0 {
			return QualityBreathing
		}
		return QualityBreathingNoRate
	}
	if f.PresenceResult != nil {
		return QualityPresenceOnly
	}
	return QualityNone
}
