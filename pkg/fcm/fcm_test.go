package fcm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMulticast(t *testing.T) {
	msg := BuildMulticast([]string{"a", "b"}, NotificationData{
		Title:       "Completed: Launch",
		Body:        "1 of 2 subtasks left open",
		Data:        map[string]string{"task_id": "t1"},
		ClickAction: "/tasks/t1/reflection",
	})

	assert.Equal(t, []string{"a", "b"}, msg.Tokens)
	assert.Equal(t, "Completed: Launch", msg.Notification.Title)
	assert.Equal(t, "t1", msg.Data["task_id"])
	require.NotNil(t, msg.Webpush.FCMOptions)
	assert.Equal(t, "/tasks/t1/reflection", msg.Webpush.FCMOptions.Link)
}

func TestBuildMulticast_NoClickAction(t *testing.T) {
	msg := BuildMulticast([]string{"a"}, NotificationData{Title: "x"})
	assert.Nil(t, msg.Webpush.FCMOptions)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "short", maskToken("short"))
	assert.Equal(t, "abcdefghijklmnopqrst...", maskToken("abcdefghijklmnopqrstuvwxyz"))
}
