package event

import (
	"fmt"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Describe renders a storefront activity event as one line of text.
// Unknown event types fall back to the raw payload.
func Describe(e *pkgkafka.Event) string {
	ts := e.Timestamp.Format("2006-01-02 15:04:05")
	switch e.EventType {
	case TopicFavoriteChanged:
		var d FavoriteChangedData
		if err := e.UnmarshalData(&d); err != nil {
			break
		}
		verb := "unfavorited"
		if d.IsFavorited {
			verb = "favorited"
		}
		return fmt.Sprintf("%s product %d %s%s", ts, d.ProductID, verb, byUser(d.UserID))
	case TopicOrderStatusChanged:
		var d OrderStatusChangedData
		if err := e.UnmarshalData(&d); err != nil {
			break
		}
		return fmt.Sprintf("%s order %s %s -> %s%s", ts, d.OrderNo, d.From, d.To, byUser(d.UserID))
	}
	return fmt.Sprintf("%s %s %s", ts, e.EventType, e.Data)
}

func byUser(id string) string {
	if id == "" {
		return ""
	}
	return " by user " + id
}
