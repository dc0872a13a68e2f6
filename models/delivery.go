package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Status is the delivery state of a post.
type Status int

const (
	StatusUnsent Status = iota // No delivery record, new post
	StatusSent                 // Delivered once, eligible for a resend
	StatusResent               // Delivered a second time, terminal
)

func (s Status) String() string {
	switch s {
	case StatusUnsent:
		return "UNSENT"
	case StatusSent:
		return "SENT"
	case StatusResent:
		return "RESENT"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// legacyTimeLayout matches naive ISO-8601 timestamps without a zone offset.
const legacyTimeLayout = "2006-01-02T15:04:05.999999999"

// DeliveryRecord is the persisted delivery metadata for one post.
type DeliveryRecord struct {
	PostID     string    `json:"post_id"`
	BusinessID string    `json:"business_id"`
	MessageRef string    `json:"message_ref"`
	Status     Status    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type deliveryRecordJSON struct {
	PostID     string          `json:"post_id"`
	BusinessID string          `json:"business_id"`
	MessageRef json.RawMessage `json:"message_ref"`
	Status     Status          `json:"status"`
	UpdatedAt  string          `json:"updated_at"`
}

// MarshalJSON writes updated_at as RFC 3339 and message_ref as a string.
func (r DeliveryRecord) MarshalJSON() ([]byte, error) {
	ref, err := json.Marshal(r.MessageRef)
	if err != nil {
		return nil, err
	}
	return json.Marshal(deliveryRecordJSON{
		PostID:     r.PostID,
		BusinessID: r.BusinessID,
		MessageRef: ref,
		Status:     r.Status,
		UpdatedAt:  r.UpdatedAt.Format(time.RFC3339Nano),
	})
}

// storedRecordJSON is the decoding shape. It also carries the id, bid and
// msg_id keys written by the first relay, which share the file format.
type storedRecordJSON struct {
	PostID     json.RawMessage `json:"post_id"`
	BusinessID json.RawMessage `json:"business_id"`
	MessageRef json.RawMessage `json:"message_ref"`
	ID         json.RawMessage `json:"id"`
	BID        json.RawMessage `json:"bid"`
	MsgID      json.RawMessage `json:"msg_id"`
	Status     Status          `json:"status"`
	UpdatedAt  string          `json:"updated_at"`
}

// UnmarshalJSON accepts numeric references, naive timestamps and the
// id/bid/msg_id keys written by older versions of the relay.
func (r *DeliveryRecord) UnmarshalJSON(data []byte) error {
	var raw storedRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	postID, err := firstRef(raw.PostID, raw.ID)
	if err != nil {
		return fmt.Errorf("invalid post_id: %w", err)
	}
	businessID, err := firstRef(raw.BusinessID, raw.BID)
	if err != nil {
		return fmt.Errorf("invalid business_id for post %s: %w", postID, err)
	}
	ref, err := firstRef(raw.MessageRef, raw.MsgID)
	if err != nil {
		return fmt.Errorf("invalid message_ref for post %s: %w", postID, err)
	}
	updatedAt, err := ParseTimestamp(raw.UpdatedAt)
	if err != nil {
		return fmt.Errorf("invalid updated_at for post %s: %w", postID, err)
	}

	*r = DeliveryRecord{
		PostID:     postID,
		BusinessID: businessID,
		MessageRef: ref,
		Status:     raw.Status,
		UpdatedAt:  updatedAt,
	}
	return nil
}

// firstRef returns the first non-empty identifier among values.
func firstRef(values ...json.RawMessage) (string, error) {
	for _, v := range values {
		ref, err := parseRef(v)
		if err != nil {
			return "", err
		}
		if ref != "" {
			return ref, nil
		}
	}
	return "", nil
}

// parseRef reads an identifier stored either as a JSON string or a number.
func parseRef(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// ParseTimestamp parses an RFC 3339 timestamp, falling back to a naive
// ISO-8601 timestamp in local time.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(legacyTimeLayout, s, time.Local)
}
