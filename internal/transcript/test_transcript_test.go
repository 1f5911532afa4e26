package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var confirmRefine = []Action{
	{Label: "Proceed", Value: "confirm_smart", Style: StylePrimary},
	{Label: "Refine", Value: "refine_smart", Style: StyleSecondary},
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	log := New()
	a := log.Append(SpeakerUser, KindPlainText, "hello", nil)
	b := log.Append(SpeakerAssistant, KindPlainText, "hi", nil)
	c := log.Append(SpeakerAssistant, KindPlainText, "again", nil)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, int64(3), c.ID)
	assert.Equal(t, 3, log.Len())
}

func TestOnlyNewestAssistantMessageKeepsActions(t *testing.T) {
	log := New()
	log.Append(SpeakerAssistant, KindPlainText, "first", nil, confirmRefine...)
	require.Len(t, log.Pending(), 2)

	log.Append(SpeakerAssistant, KindPlainText, "second", nil, confirmRefine[:1]...)
	msgs := log.Messages()
	assert.Empty(t, msgs[0].PendingActions)
	assert.Len(t, msgs[1].PendingActions, 1)

	log.Append(SpeakerUser, KindPlainText, "answer", nil)
	for _, m := range log.Messages() {
		assert.Empty(t, m.PendingActions)
	}
	assert.Empty(t, log.Pending())
}

func TestUserMessagesNeverCarryActions(t *testing.T) {
	log := New()
	msg := log.Append(SpeakerUser, KindPlainText, "x", nil, confirmRefine...)
	assert.Empty(t, msg.PendingActions)
}

func TestLaterAssistantMessageRetiresOffer(t *testing.T) {
	log := New()
	log.Append(SpeakerAssistant, KindTreeResult, "tree", nil, confirmRefine...)
	log.Append(SpeakerAssistant, KindPlainText, "note", nil)

	msgs := log.Messages()
	assert.Empty(t, msgs[0].PendingActions)
	assert.Empty(t, log.Pending())
}

func TestMessagesReturnsCopies(t *testing.T) {
	log := New()
	log.Append(SpeakerAssistant, KindPlainText, "q", nil, confirmRefine...)
	msgs := log.Messages()
	msgs[0].PendingActions[0].Value = "tampered"

	assert.Equal(t, "confirm_smart", log.Pending()[0].Value)

	log.ClearPendingActions()
	assert.Empty(t, log.Pending())
}
