package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymate-ai/studymate/internal/store"
)

type fakeGateway struct {
	reply      string
	err        error
	calls      int
	lastPrompt string
	lastImage  *ImageAttachment
}

func (g *fakeGateway) Generate(ctx context.Context, prompt string, image *ImageAttachment) (string, error) {
	g.calls++
	g.lastPrompt = prompt
	g.lastImage = image
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func newTestService(t *testing.T, gw Gateway) (*StudyService, *store.SQLiteStore) {
	t.Helper()
	st := newTestStore(t)
	return NewStudyService(st, gw, NewFeed(st)), st
}

func TestAskSuccessPersistsOneExchange(t *testing.T) {
	gw := &fakeGateway{reply: "The answer involves four."}
	svc, st := newTestService(t, gw)
	require.NoError(t, svc.SaveProfile("user-1", "INTJ"))

	ex, err := svc.Ask(context.Background(), "user-1", AskInput{Mode: "qa", Text: "What is 2+2?"})
	require.NoError(t, err)

	assert.Equal(t, "Answer this question in detail: What is 2+2?", gw.lastPrompt)
	assert.Equal(t, "qa", ex.Mode)
	assert.Equal(t, "What is 2+2?", ex.PromptText)
	assert.Equal(t, "The answer involves four.", ex.ResponseText)
	require.NotNil(t, ex.MBTICategory)
	assert.Equal(t, "INTJ", *ex.MBTICategory)
	assert.False(t, ex.CreatedAt.IsZero(), "timestamp must be server-assigned")

	stored, err := st.GetExchanges("user-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, ex.ID, stored[0].ID)
}

func TestAskWithoutProfileOmitsCategory(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	svc, _ := newTestService(t, gw)

	ex, err := svc.Ask(context.Background(), "user-1", AskInput{Mode: "summary", Text: "long text here"})
	require.NoError(t, err)
	assert.Nil(t, ex.MBTICategory)
}

func TestAskGatewayFailurePersistsNothing(t *testing.T) {
	gw := &fakeGateway{err: errors.New("endpoint returned 500")}
	svc, st := newTestService(t, gw)

	_, err := svc.Ask(context.Background(), "user-1", AskInput{Mode: "qa", Text: "hello"})
	assert.ErrorIs(t, err, ErrGateway)

	stored, err := st.GetExchanges("user-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAskMentorWithoutProfileMakesNoGatewayCall(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	svc, st := newTestService(t, gw)

	_, err := svc.Ask(context.Background(), "user-1", AskInput{Mode: "mentor", Text: "help me study"})
	assert.ErrorIs(t, err, ErrProfileRequired)
	assert.Zero(t, gw.calls)

	stored, err := st.GetExchanges("user-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAskEmptyInputBlockedForAllModes(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	svc, _ := newTestService(t, gw)
	require.NoError(t, svc.SaveProfile("user-1", "ENFP"))

	for name := range modesByName {
		_, err := svc.Ask(context.Background(), "user-1", AskInput{Mode: name})
		assert.ErrorIs(t, err, ErrEmptyPrompt, "mode %s", name)
	}
	assert.Zero(t, gw.calls)
}

func TestAskUnknownMode(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	svc, _ := newTestService(t, gw)

	_, err := svc.Ask(context.Background(), "user-1", AskInput{Mode: "essay", Text: "x"})
	assert.ErrorIs(t, err, ErrUnknownMode)
	assert.Zero(t, gw.calls)
}

func TestAskForwardsImageToGateway(t *testing.T) {
	gw := &fakeGateway{reply: "It's a cat."}
	svc, _ := newTestService(t, gw)

	img := &ImageAttachment{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}
	ex, err := svc.Ask(context.Background(), "user-1", AskInput{Mode: "image", Image: img})
	require.NoError(t, err)

	require.NotNil(t, gw.lastImage)
	assert.Equal(t, "image/jpeg", gw.lastImage.MIMEType)
	assert.Equal(t, "", ex.PromptText, "prompt text may be empty when an image is supplied")
}

func TestAskMentorUsesStoredCategory(t *testing.T) {
	gw := &fakeGateway{reply: "Let's think about the first step."}
	svc, _ := newTestService(t, gw)
	require.NoError(t, svc.SaveProfile("user-1", "ISFJ"))

	_, err := svc.Ask(context.Background(), "user-1", AskInput{Mode: "mentor", Text: "what is gravity?"})
	require.NoError(t, err)
	assert.Contains(t, gw.lastPrompt, "ISFJ")
	assert.Contains(t, gw.lastPrompt, "Never reveal the final answer")
}

func TestSaveProfileRejectsBadCategory(t *testing.T) {
	svc, _ := newTestService(t, &fakeGateway{})
	assert.ErrorIs(t, svc.SaveProfile("user-1", "XXXX"), ErrBadCategory)

	profile, err := svc.Profile("user-1")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestHistoryIsSortedDescending(t *testing.T) {
	gw := &fakeGateway{reply: "ok"}
	svc, _ := newTestService(t, gw)

	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.Ask(context.Background(), "user-1", AskInput{Mode: "qa", Text: text})
		require.NoError(t, err)
	}

	history, err := svc.History("user-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i-1].CreatedAt.Before(history[i].CreatedAt))
	}
}
