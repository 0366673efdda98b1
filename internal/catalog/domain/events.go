package domain

import "time"

// TopicProductRestocked 到货事件主题
const TopicProductRestocked = "product.restocked"

// ProductRestockedEvent 商品由缺货恢复可售
type ProductRestockedEvent struct {
	Previous   ProductSnapshot `json:"previous"`
	Current    ProductSnapshot `json:"current"`
	OccurredAt time.Time       `json:"occurred_at"`
}
