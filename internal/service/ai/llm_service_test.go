package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeChatModel struct {
	reply    string
	err      error
	messages []*schema.Message
	opts     *model.Options
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.messages = input
	f.opts = model.GetCommonOptions(&model.Options{}, opts...)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestServiceComplete(t *testing.T) {
	fake := &fakeChatModel{reply: `[{"text":"q"}]`}
	svc, err := NewServiceWithModel(context.Background(), fake)
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}

	out, err := svc.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "return JSON {only}",
		UserPrompt:   "Generate 3 questions",
		MaxTokens:    1500,
		Temperature:  0.7,
	})
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if out != fake.reply {
		t.Fatalf("unexpected output %q", out)
	}

	if len(fake.messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(fake.messages))
	}
	if fake.messages[0].Role != schema.System || fake.messages[0].Content != "return JSON {only}" {
		t.Fatalf("unexpected system message %+v", fake.messages[0])
	}
	if fake.messages[1].Role != schema.User || fake.messages[1].Content != "Generate 3 questions" {
		t.Fatalf("unexpected user message %+v", fake.messages[1])
	}
	if fake.opts.MaxTokens == nil || *fake.opts.MaxTokens != 1500 {
		t.Fatalf("max tokens not forwarded: %+v", fake.opts.MaxTokens)
	}
	if fake.opts.Temperature == nil || *fake.opts.Temperature != 0.7 {
		t.Fatalf("temperature not forwarded: %+v", fake.opts.Temperature)
	}
}

func TestServiceCompleteErrors(t *testing.T) {
	cases := []struct {
		name  string
		model *fakeChatModel
	}{
		{name: "model error", model: &fakeChatModel{err: errors.New("rate limited")}},
		{name: "empty reply", model: &fakeChatModel{reply: "   "}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := NewServiceWithModel(context.Background(), tc.model)
			if err != nil {
				t.Fatalf("NewServiceWithModel err: %v", err)
			}
			if _, err := svc.Complete(context.Background(), CompletionRequest{UserPrompt: "x"}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := NewServiceWithModel(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil model")
	}
}

func TestExtract(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		array   bool
		want    string
		wantErr error
	}{
		{name: "array with prose", text: "Here you go:\n[{\"text\":\"a\"}]\nThanks", array: true, want: `[{"text":"a"}]`},
		{name: "bracket inside string", text: `[{"text":"what about ] this?"}] trailing ]`, array: true, want: `[{"text":"what about ] this?"}]`},
		{name: "escaped quote", text: `{"summary":"he said \"}\" ok"} {"x":1}`, want: `{"summary":"he said \"}\" ok"}`},
		{name: "nested object", text: `note {"scores":{"clarity":7}} end`, want: `{"scores":{"clarity":7}}`},
		{name: "missing", text: "no json here", array: true, wantErr: ErrNoJSON},
		{name: "unbalanced", text: `{"a": {"b": 1}`, wantErr: ErrUnbalancedJSON},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var (
				got string
				err error
			)
			if tc.array {
				got, err = ExtractArray(tc.text)
			} else {
				got, err = ExtractObject(tc.text)
			}
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}
