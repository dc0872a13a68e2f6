package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryRecord_MarshalJSON(t *testing.T) {
	rec := DeliveryRecord{
		PostID:     "1",
		BusinessID: "A",
		MessageRef: "1234",
		Status:     StatusSent,
		UpdatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"post_id":"1","business_id":"A","message_ref":"1234","status":1,"updated_at":"2024-05-01T12:00:00Z"}`, string(data))

	var back DeliveryRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec.MessageRef, back.MessageRef)
	assert.True(t, rec.UpdatedAt.Equal(back.UpdatedAt))
}

func TestDeliveryRecord_UnmarshalLegacy(t *testing.T) {
	var rec DeliveryRecord
	err := json.Unmarshal([]byte(`{"post_id":"1","business_id":"A","message_ref":1234567890123456789,"status":2,"updated_at":"2024-05-01T10:00:00.5"}`), &rec)
	require.NoError(t, err)
	assert.Equal(t, "1234567890123456789", rec.MessageRef)
	assert.Equal(t, StatusResent, rec.Status)
	assert.True(t, time.Date(2024, 5, 1, 10, 0, 0, 500000000, time.Local).Equal(rec.UpdatedAt))
}

func TestDeliveryRecord_UnmarshalFirstRelayKeys(t *testing.T) {
	var rec DeliveryRecord
	err := json.Unmarshal([]byte(`{"id": "4990000000000001", "bid": "NabcDEF", "msg_id": 1234567890123456789, "status": 1, "updated_at": "2024-05-01T10:00:00.123456"}`), &rec)
	require.NoError(t, err)
	assert.Equal(t, "4990000000000001", rec.PostID)
	assert.Equal(t, "NabcDEF", rec.BusinessID)
	assert.Equal(t, "1234567890123456789", rec.MessageRef)
	assert.Equal(t, StatusSent, rec.Status)

	// Current keys win over the old ones.
	err = json.Unmarshal([]byte(`{"post_id":"1","id":"2","business_id":"A","bid":"B","message_ref":"m1","msg_id":9,"status":2,"updated_at":"2024-05-01T10:00:00Z"}`), &rec)
	require.NoError(t, err)
	assert.Equal(t, "1", rec.PostID)
	assert.Equal(t, "A", rec.BusinessID)
	assert.Equal(t, "m1", rec.MessageRef)

	// Numeric ids are accepted too.
	err = json.Unmarshal([]byte(`{"id": 4990000000000002, "bid": "X", "msg_id": 5, "status": 2, "updated_at": "2024-05-01T10:00:00"}`), &rec)
	require.NoError(t, err)
	assert.Equal(t, "4990000000000002", rec.PostID)
}

func TestDeliveryRecord_MarshalWritesCurrentKeys(t *testing.T) {
	var rec DeliveryRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id": "1", "bid": "A", "msg_id": 7, "status": 1, "updated_at": "2024-05-01T10:00:00Z"}`), &rec))

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"post_id":"1","business_id":"A","message_ref":"7","status":1,"updated_at":"2024-05-01T10:00:00Z"}`, string(data))
}

func TestDeliveryRecord_UnmarshalInvalidTimestamp(t *testing.T) {
	var rec DeliveryRecord
	err := json.Unmarshal([]byte(`{"post_id":"1","updated_at":"yesterday"}`), &rec)
	assert.Error(t, err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "UNSENT", StatusUnsent.String())
	assert.Equal(t, "SENT", StatusSent.String())
	assert.Equal(t, "RESENT", StatusResent.String())
	assert.Equal(t, "Status(7)", Status(7).String())
}
