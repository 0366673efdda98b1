package sender

import (
	"context"

	"github.com/wyfcoding/storefront/internal/notification/domain"
)

// Disabled 未启用的渠道，发送记录为 skipped
type Disabled struct {
	channel domain.Channel
}

// NewDisabled 创建禁用渠道
func NewDisabled(channel domain.Channel) *Disabled {
	return &Disabled{channel: channel}
}

// Channel 实现 domain.Sender
func (d *Disabled) Channel() domain.Channel { return d.channel }

// Send 实现 domain.Sender
func (d *Disabled) Send(context.Context, domain.Message) error {
	return domain.ErrChannelDisabled
}
