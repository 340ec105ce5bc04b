package botresponse

import (
	"fmt"
	"reflect"

	"github.com/botfront/authoring-service/internal/model"
	"gopkg.in/yaml.v3"
)

type joinedMessage struct {
	Text    string           `yaml:"text,omitempty"`
	Buttons []map[string]any `yaml:"buttons,omitempty"`
}

// JoinSequence merges a multi-message sequence into a single message. Texts are
// separated by a blank line and buttons are appended in order.
func JoinSequence(sequence []model.SequenceStep) ([]model.SequenceStep, error) {
	if len(sequence) == 0 {
		return sequence, nil
	}
	var joined joinedMessage
	for i, step := range sequence {
		var msg joinedMessage
		if err := yaml.Unmarshal([]byte(step.Content), &msg); err != nil {
			return nil, fmt.Errorf("sequence step %d: %w", i, err)
		}
		switch {
		case msg.Text == "":
		case joined.Text == "":
			joined.Text = msg.Text
		default:
			joined.Text = joined.Text + "\n\n" + msg.Text
		}
		joined.Buttons = append(joined.Buttons, msg.Buttons...)
	}
	out, err := yaml.Marshal(joined)
	if err != nil {
		return nil, err
	}
	return []model.SequenceStep{{Content: string(out)}}, nil
}

// JoinValues applies JoinSequence to every value. The boolean reports whether
// anything differs from the input.
func JoinValues(values []model.ResponseValue) ([]model.ResponseValue, bool, error) {
	out := make([]model.ResponseValue, len(values))
	for i, v := range values {
		seq, err := JoinSequence(v.Sequence)
		if err != nil {
			return nil, false, fmt.Errorf("value %d (%s): %w", i, v.Lang, err)
		}
		out[i] = model.ResponseValue{Lang: v.Lang, Sequence: seq}
	}
	return out, !reflect.DeepEqual(values, out), nil
}
