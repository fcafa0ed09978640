package observe

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Base is the default observer. It writes one diagnostic record per call and
// returns every value unchanged.
//
// Observers that only care about some hooks embed Base and override the
// others. The zero value logs through zap.L().
type Base struct {
	Logger *zap.Logger
	// Now is the clock used for record timestamps, time.Now when nil.
	Now func() time.Time
}

// NewBase returns a Base writing to logger.
func NewBase(logger *zap.Logger) Base {
	return Base{Logger: logger}
}

func (b Base) Register(value any, fn, ident, typeName string) any {
	b.emit(OpRegister, fn, ident, fmt.Sprintf("%d|Registering|‹%s›(%s)=%v", b.now(), Path(fn, ident), typeName, value))
	return value
}

func (b Base) Propose(value any, fn, ident string) any {
	b.emit(OpPropose, fn, ident, fmt.Sprintf("%d|Proposing|‹%s›(%T): %v", b.now(), Path(fn, ident), value, value))
	return value
}

func (b Base) Request(value any, fn, ident string) any {
	b.emit(OpRequest, fn, ident, fmt.Sprintf("%d|Requesting|‹%s›(%T) (old value %v)", b.now(), Path(fn, ident), value, value))
	return value
}

func (b Base) emit(op Op, fn, ident, record string) {
	logger := b.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Info(record,
		zap.Stringer("op", op),
		zap.String("fn", fn),
		zap.String("ident", ident),
	)
}

func (b Base) now() int64 {
	if b.Now != nil {
		return b.Now().UnixNano()
	}
	return time.Now().UnixNano()
}
