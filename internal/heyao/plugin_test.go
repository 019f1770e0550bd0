package heyao

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/heyao-tools/heyaobot/internal/bot"
)

type fakeAPI struct {
	resp *QueryResponse
	err  error

	calls int
	// replier, when set, lets the fake observe how many text replies went
	// out before the lookup started.
	replier      *recordingReplier
	textsAtQuery int
}

func (f *fakeAPI) Query(ctx context.Context, orderID string) (*QueryResponse, error) {
	f.calls++
	if f.replier != nil {
		f.textsAtQuery = len(f.replier.texts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type recordingReplier struct {
	texts    []string
	images   []string
	imageErr error
}

func (r *recordingReplier) ReplyText(ctx context.Context, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingReplier) ReplyImage(ctx context.Context, path string) error {
	if r.imageErr != nil {
		return r.imageErr
	}
	r.images = append(r.images, path)
	return nil
}

func (r *recordingReplier) lastText(t *testing.T) string {
	t.Helper()
	if len(r.texts) == 0 {
		t.Fatal("no text replies recorded")
	}
	return r.texts[len(r.texts)-1]
}

func okResponse() *QueryResponse {
	code := 0
	return &QueryResponse{
		Code: &code,
		QueryDataList: []QueryRecord{
			{Content: json.RawMessage(`{"v0":"#7","v1":"张三","v2":"20240501"}`)},
		},
	}
}

func newTestPlugin(t *testing.T, api OrderAPI) (*Plugin, *MemoryPointerStore, string) {
	t.Helper()
	dir := t.TempDir()
	writeTemplate(t, dir, 64, 48)
	store := NewMemoryPointerStore()
	p := New(api, NewImageRenderer(dir, zap.NewNop()), store, zap.NewNop())
	return p, store, dir
}

func TestHandleUsageWithoutArgument(t *testing.T) {
	api := &fakeAPI{resp: okResponse()}
	p, _, _ := newTestPlugin(t, api)

	for _, text := range []string{"/heyao", "heyao", "/heyao   ", "河妖"} {
		replier := &recordingReplier{}
		p.Handle(context.Background(), bot.NewSession("group:1", text, replier))
		if len(replier.texts) != 1 || replier.texts[0] != usageMessage {
			t.Errorf("text %q: replies = %v, want only the usage message", text, replier.texts)
		}
		if len(replier.images) != 0 {
			t.Errorf("text %q: unexpected image replies %v", text, replier.images)
		}
	}
	if api.calls != 0 {
		t.Errorf("lookup API called %d times for usage errors", api.calls)
	}
}

func TestHandleAckSentBeforeQuery(t *testing.T) {
	replier := &recordingReplier{}
	api := &fakeAPI{resp: okResponse(), replier: replier}
	p, _, _ := newTestPlugin(t, api)

	p.Handle(context.Background(), bot.NewSession("group:1", "/heyao 20240501", replier))

	if api.calls != 1 {
		t.Fatalf("lookup API called %d times, want 1", api.calls)
	}
	if api.textsAtQuery != 1 {
		t.Errorf("%d text replies before the lookup, want the acknowledgement first", api.textsAtQuery)
	}
	if replier.texts[0] != "正在查询订单号：20240501..." {
		t.Errorf("acknowledgement = %q", replier.texts[0])
	}
}

func TestHandleQueryFailure(t *testing.T) {
	replier := &recordingReplier{}
	p, _, _ := newTestPlugin(t, &fakeAPI{err: errors.New("connection reset")})

	p.Handle(context.Background(), bot.NewSession("group:1", "/heyao 88", replier))

	want := "查询订单 88 时出错，请检查日志或稍后再试。"
	if got := replier.lastText(t); got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
	if len(replier.images) != 0 {
		t.Errorf("unexpected image replies: %v", replier.images)
	}
}

func TestHandleNotFoundReply(t *testing.T) {
	code := -1
	replier := &recordingReplier{}
	p, _, _ := newTestPlugin(t, &fakeAPI{resp: &QueryResponse{Code: &code}})

	p.Handle(context.Background(), bot.NewSession("group:1", "/heyao 88", replier))

	want := "查询失败：未找到订单 88 的信息。 (订单号: 88)"
	if got := replier.lastText(t); got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
}

func TestHandleMalformedContentReply(t *testing.T) {
	resp := &QueryResponse{QueryDataList: []QueryRecord{{Content: json.RawMessage(`"oops"`)}}}
	replier := &recordingReplier{}
	p, _, _ := newTestPlugin(t, &fakeAPI{resp: resp})

	p.Handle(context.Background(), bot.NewSession("group:1", "/heyao 88", replier))

	want := "查询成功，但未能解析订单详细信息。(订单号: 88)"
	if got := replier.lastText(t); got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
}

func TestHandleSuccessDeliversImageAndTracksIt(t *testing.T) {
	replier := &recordingReplier{}
	p, store, dir := newTestPlugin(t, &fakeAPI{resp: okResponse()})

	p.Handle(context.Background(), bot.NewSession("group:1", "/heyao 20240501", replier))

	if len(replier.images) != 1 {
		t.Fatalf("image replies = %v, want exactly one", replier.images)
	}
	path := replier.images[0]
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("delivered image missing from disk: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(dir, scratchDirName) {
		t.Errorf("image outside scratch dir: %s", path)
	}
	if base := filepath.Base(path); !strings.HasPrefix(base, "Heyao_7_") {
		t.Errorf("unexpected filename %q", base)
	}
	if last, _ := store.Last(context.Background(), "group:1"); last != path {
		t.Errorf("pointer = %q, want %q", last, path)
	}
}

func TestHandleSecondSuccessDeletesPrevious(t *testing.T) {
	replier := &recordingReplier{}
	p, store, _ := newTestPlugin(t, &fakeAPI{resp: okResponse()})
	sess := bot.NewSession("group:1", "/heyao 20240501", replier)

	p.Handle(context.Background(), sess)
	p.Handle(context.Background(), sess)

	if len(replier.images) != 2 {
		t.Fatalf("image replies = %v, want two", replier.images)
	}
	first, second := replier.images[0], replier.images[1]
	if first == second {
		t.Fatalf("both runs produced the same path: %s", first)
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Errorf("previous image still on disk: %v", err)
	}
	if _, err := os.Stat(second); err != nil {
		t.Errorf("current image missing: %v", err)
	}
	if last, _ := store.Last(context.Background(), "group:1"); last != second {
		t.Errorf("pointer = %q, want %q", last, second)
	}
}

func TestHandleRenderFailurePreservesPrevious(t *testing.T) {
	replier := &recordingReplier{}
	p, store, dir := newTestPlugin(t, &fakeAPI{resp: okResponse()})
	sess := bot.NewSession("group:1", "/heyao 20240501", replier)

	p.Handle(context.Background(), sess)
	first := replier.images[0]

	// Break rendering for the second run.
	if err := os.Remove(filepath.Join(dir, templateFile)); err != nil {
		t.Fatal(err)
	}
	p.Handle(context.Background(), sess)

	want := "成功获取订单信息，但在生成图片时失败。(订单号: 20240501)"
	if got := replier.lastText(t); got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
	if _, err := os.Stat(first); err != nil {
		t.Errorf("previous image lost after failed render: %v", err)
	}
	if last, _ := store.Last(context.Background(), "group:1"); last != first {
		t.Errorf("pointer = %q, want it to keep %q", last, first)
	}
}

func TestHandleDeliveryFailureKeepsFileAndPointer(t *testing.T) {
	replier := &recordingReplier{imageErr: errors.New("socket closed")}
	p, store, _ := newTestPlugin(t, &fakeAPI{resp: okResponse()})

	p.Handle(context.Background(), bot.NewSession("group:1", "/heyao 20240501", replier))

	want := "生成图片成功，但发送时遇到问题。"
	if got := replier.lastText(t); got != want {
		t.Errorf("reply = %q, want %q", got, want)
	}
	path, _ := store.Last(context.Background(), "group:1")
	if path == "" {
		t.Fatal("pointer not recorded after delivery failure")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("image removed after delivery failure: %v", err)
	}
}

func TestHandleKeepsSessionsApart(t *testing.T) {
	p, store, _ := newTestPlugin(t, &fakeAPI{resp: okResponse()})

	groupReplier := &recordingReplier{}
	userReplier := &recordingReplier{}
	p.Handle(context.Background(), bot.NewSession("group:1", "/heyao 20240501", groupReplier))
	p.Handle(context.Background(), bot.NewSession("user:1", "/heyao 20240501", userReplier))

	groupPath, _ := store.Last(context.Background(), "group:1")
	userPath, _ := store.Last(context.Background(), "user:1")
	if groupPath == "" || userPath == "" || groupPath == userPath {
		t.Fatalf("session pointers not independent: group=%q user=%q", groupPath, userPath)
	}
	for _, p := range []string{groupPath, userPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("image for one session cleaned up by another: %v", err)
		}
	}
}

func TestPluginIdentity(t *testing.T) {
	p, _, _ := newTestPlugin(t, &fakeAPI{})
	if p.Name() != "heyao" {
		t.Errorf("name = %q", p.Name())
	}
	aliases := p.Aliases()
	if len(aliases) != 2 || aliases[0] != "河妖" || aliases[1] != "查订单" {
		t.Errorf("aliases = %v", aliases)
	}
}

func TestOrderArgument(t *testing.T) {
	cases := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"/heyao 20240501", "20240501", true},
		{"heyao  #88 ", "#88", true},
		{"查订单\t多 词 参数", "多 词 参数", true},
		{"/heyao", "", false},
		{"/heyao   ", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := orderArgument(c.text)
		if got != c.want || ok != c.wantOK {
			t.Errorf("orderArgument(%q) = %q, %v, want %q, %v", c.text, got, ok, c.want, c.wantOK)
		}
	}
}
