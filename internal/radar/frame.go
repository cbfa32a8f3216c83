// Package radar 实现 XM125 breathing ref-app 的采集循环
//
// 呼吸率和 presence 的估计都在模组固件的 ref-app 里完成，
// 这里只负责逐帧拉取结果、打质量标签、落 CSV。
package radar

import "errors"

// ErrProcessStopped 帧来源的后台进程已结束
//
// 采集循环收到这个错误时按 session 正常结束处理，不算失败。
var ErrProcessStopped = errors.New("ref-app process stopped")

// BreathingResult ref-app 输出的呼吸结果
//
// BreathingRate 为 nil 表示 ref-app 已进入呼吸估计阶段但还没算出有效值。
type BreathingResult struct {
	BreathingRate *float64
}

// PresenceResult ref-app 输出的 presence 结果
type PresenceResult struct {
	PresenceDetected      bool
	PresenceDistance      float64
	IntraPresenceScore    float64
	InterPresenceScore    float64
	PresenceDistanceIndex *int
}

// ProcessedFrame 一帧处理完的结果
type ProcessedFrame struct {
	AppState               string
	DistancesBeingAnalyzed string

	BreathingResult *BreathingResult
	PresenceResult  *PresenceResult
}

// FrameSource 帧来源（真机是串口后面的 ref-app，单元测试里用 fake 替换）
type FrameSource interface {
	// Next 阻塞等待下一帧处理结果
	// 后台进程结束时返回 ErrProcessStopped
	Next() (*ProcessedFrame, error)
}
