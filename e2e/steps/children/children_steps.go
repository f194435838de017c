package children

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Save(name, value string)
}

// RegisterSteps registers child profile step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &childrenSteps{tc: tc}

	ctx.Step(`^I register a child named "([^"]*)" aged (\d+)$`, steps.registerChild)
	ctx.Step(`^I have registered a child named "([^"]*)" aged (\d+)$`, steps.haveRegisteredChild)
	ctx.Step(`^I store a voice interaction for the child$`, steps.storeVoiceInteraction)
	ctx.Step(`^I store a text interaction "([^"]*)" for the child$`, steps.storeTextInteraction)
}

type childrenSteps struct {
	tc TestContext
}

func (s *childrenSteps) registerChild(ctx context.Context, name string, age int) error {
	birthdate := time.Now().UTC().AddDate(-age, 0, -30).Format("2006-01-02")
	return s.tc.POST("/children", map[string]any{
		"name":         name,
		"birthdate":    birthdate,
		"language":     "en",
		"relationship": "biological",
	})
}

// haveRegisteredChild registers the child and saves its id as {child_id}.
func (s *childrenSteps) haveRegisteredChild(ctx context.Context, name string, age int) error {
	if err := s.registerChild(ctx, name, age); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return fmt.Errorf("child registration failed: %d %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	childID, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.Save("child_id", fmt.Sprint(childID))
	return nil
}

func (s *childrenSteps) storeVoiceInteraction(ctx context.Context) error {
	return s.tc.POST("/children/{child_id}/interactions", map[string]any{
		"kind":               "voice",
		"audio":              []byte("RIFF....WAVEfmt "),
		"audio_content_type": "audio/wav",
	})
}

func (s *childrenSteps) storeTextInteraction(ctx context.Context, transcript string) error {
	return s.tc.POST("/children/{child_id}/interactions", map[string]any{
		"kind":       "text",
		"transcript": transcript,
	})
}
