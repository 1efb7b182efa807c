package sleep

import (
	"owlet-sync/internal/models"

	"go.uber.org/zap"
)

// Transition 一次睡眠/清醒状态翻转
type Transition struct {
	From bool // true = 入睡状态
	To   bool
}

// Tracker 睡眠状态跟踪器
// 以设备自身的 sleep_state 分类为准（2 = 入睡，其余视为清醒）
// 状态只存在于进程生命周期内，重启后第一次观察不会产生翻转
type Tracker struct {
	logger    *zap.Logger
	lastState *bool
}

// NewTracker 创建睡眠状态跟踪器
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// Observe 观察一条读数，状态翻转时返回 Transition，否则返回 nil
// 无论是否翻转，状态都会更新
func (t *Tracker) Observe(reading models.VitalReading) *Transition {
	current := reading.IsAsleep()

	var transition *Transition
	if t.lastState != nil && *t.lastState != current {
		transition = &Transition{From: *t.lastState, To: current}
		t.logger.Info("Sleep state transition detected",
			zap.Bool("was_asleep", transition.From),
			zap.Bool("is_asleep", transition.To),
		)
	}

	t.lastState = &current
	return transition
}
