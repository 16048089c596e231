package domain

import "time"

// NotificationType is the closed set of notification categories.
type NotificationType string

const (
	NotificationOrderFilled        NotificationType = "order_filled"
	NotificationOrderCanceled      NotificationType = "order_canceled"
	NotificationOrderRejected      NotificationType = "order_rejected"
	NotificationPositionOpened     NotificationType = "position_opened"
	NotificationPositionClosed     NotificationType = "position_closed"
	NotificationPositionLiquidated NotificationType = "position_liquidated"
	NotificationPnLUpdate          NotificationType = "pnl_update"
	NotificationMarginAlert        NotificationType = "margin_alert"
	NotificationRateLimitWarning   NotificationType = "rate_limit_warning"
	NotificationVaultUpdate        NotificationType = "vault_update"
	NotificationReferralReward     NotificationType = "referral_reward"
	NotificationStakingReward      NotificationType = "staking_reward"
	NotificationPriceAlert         NotificationType = "price_alert"
	NotificationVolumeMilestone    NotificationType = "volume_milestone"
	NotificationFeeDiscount        NotificationType = "fee_discount"
)

// NotificationTypes lists every valid NotificationType in declaration order.
var NotificationTypes = []NotificationType{
	NotificationOrderFilled,
	NotificationOrderCanceled,
	NotificationOrderRejected,
	NotificationPositionOpened,
	NotificationPositionClosed,
	NotificationPositionLiquidated,
	NotificationPnLUpdate,
	NotificationMarginAlert,
	NotificationRateLimitWarning,
	NotificationVaultUpdate,
	NotificationReferralReward,
	NotificationStakingReward,
	NotificationPriceAlert,
	NotificationVolumeMilestone,
	NotificationFeeDiscount,
}

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Priority ranks how urgently a notification should be surfaced.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns an ordinal for comparisons; unknown priorities rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Notification is a single derived event surfaced to the user. Only Read
// changes after creation, and only from false to true.
type Notification struct {
	ID        string           `json:"id"`
	User      string           `json:"user"`
	Type      NotificationType `json:"type"`
	Priority  Priority         `json:"priority"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Data      any              `json:"data,omitempty"`
	Read      bool             `json:"read"`
	ActionURL string           `json:"actionUrl,omitempty"`
}

// Statistics summarises the notification store.
type Statistics struct {
	Total      int                      `json:"total"`
	Unread     int                      `json:"unread"`
	ByType     map[NotificationType]int `json:"byType"`
	ByPriority map[Priority]int         `json:"byPriority"`
}
