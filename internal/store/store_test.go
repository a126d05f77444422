package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rcliao/memdigest/internal/model"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func tagsPtr(v ...string) *[]string { return &v }

// runStoreTests exercises the Store contract. Each subtest works on its own
// owner so the suite can share a database.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	cases := []struct {
		name string
		fn   func(t *testing.T, s Store, owner string)
	}{
		{"CreateDefaults", testCreateDefaults},
		{"CreateAllFields", testCreateAllFields},
		{"ImportanceBoundaries", testImportanceBoundaries},
		{"ContentValidation", testContentValidation},
		{"MetadataValidation", testMetadataValidation},
		{"ListOrder", testListOrder},
		{"Get", testGet},
		{"UpdateNoFields", testUpdateNoFields},
		{"UpdatePartial", testUpdatePartial},
		{"UpdateRejectsInvalid", testUpdateRejectsInvalid},
		{"UpdateNotFound", testUpdateNotFound},
		{"UpdateMovesToFront", testUpdateMovesToFront},
		{"Delete", testDelete},
		{"Clear", testClear},
		{"Import", testImport},
		{"ImportAllOrNothing", testImportAllOrNothing},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newStore(t)
			owner := t.Name()
			if _, err := s.Clear(context.Background(), owner); err != nil {
				t.Fatalf("reset owner: %v", err)
			}
			c.fn(t, s, owner)
		})
	}
}

func mustCreate(t *testing.T, s Store, p CreateParams) *model.Memory {
	t.Helper()
	m, err := s.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("create %q: %v", p.Content, err)
	}
	return m
}

func mustList(t *testing.T, s Store, owner string) []model.Memory {
	t.Helper()
	list, err := s.List(context.Background(), owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return list
}

func contents(list []model.Memory) []string {
	out := make([]string, len(list))
	for i, m := range list {
		out[i] = m.Content
	}
	return out
}

func testCreateDefaults(t *testing.T, s Store, owner string) {
	mem := mustCreate(t, s, CreateParams{Owner: owner, Content: "Likes tea"})
	if mem.ID == "" {
		t.Error("expected non-empty ID")
	}
	if mem.Importance != model.DefaultImportance {
		t.Errorf("expected default importance 5, got %d", mem.Importance)
	}

	list := mustList(t, s, owner)
	if len(list) != 1 {
		t.Fatalf("expected 1 record, got %d", len(list))
	}
	got := list[0]
	if got.ID != mem.ID || got.Owner != owner || got.Content != "Likes tea" || got.Importance != 5 {
		t.Errorf("unexpected record %+v", got)
	}
	if len(got.Tags) != 0 || got.Metadata != nil {
		t.Errorf("expected no tags or metadata, got %v %s", got.Tags, got.Metadata)
	}
	if !got.UpdatedAt.Equal(mem.UpdatedAt) || !got.CreatedAt.Equal(mem.CreatedAt) {
		t.Errorf("timestamps not persisted: %v vs %v", got.UpdatedAt, mem.UpdatedAt)
	}
}

func testCreateAllFields(t *testing.T, s Store, owner string) {
	meta := model.Metadata(`{"source":"chat","nested":{"n":[1,2.5,null,true]}}`)
	mustCreate(t, s, CreateParams{
		Owner:      owner,
		Content:    "Likes coffee",
		Importance: intPtr(8),
		Tags:       []string{"preference", " drinks ", "preference"},
		Metadata:   meta,
	})

	got := mustList(t, s, owner)[0]
	if got.Importance != 8 {
		t.Errorf("expected importance 8, got %d", got.Importance)
	}
	if !reflect.DeepEqual(got.Tags, []string{"preference", "drinks"}) {
		t.Errorf("unexpected tags %v", got.Tags)
	}
	if string(got.Metadata) != string(meta) {
		t.Errorf("metadata not byte-identical: %s", got.Metadata)
	}
}

func testImportanceBoundaries(t *testing.T, s Store, owner string) {
	ctx := context.Background()
	for _, v := range []int{0, 11} {
		_, err := s.Create(ctx, CreateParams{Owner: owner, Content: "x", Importance: intPtr(v)})
		if !errors.Is(err, model.ErrValidation) {
			t.Errorf("importance %d: expected ErrValidation, got %v", v, err)
		}
	}
	for _, v := range []int{1, 10} {
		if _, err := s.Create(ctx, CreateParams{Owner: owner, Content: "x", Importance: intPtr(v)}); err != nil {
			t.Errorf("importance %d: %v", v, err)
		}
	}
	if n := len(mustList(t, s, owner)); n != 2 {
		t.Errorf("expected only the 2 valid records, got %d", n)
	}
}

func testContentValidation(t *testing.T, s Store, owner string) {
	ctx := context.Background()
	for _, c := range []string{"", "   "} {
		if _, err := s.Create(ctx, CreateParams{Owner: owner, Content: c}); !errors.Is(err, model.ErrValidation) {
			t.Errorf("content %q: expected ErrValidation, got %v", c, err)
		}
	}
	if _, err := s.Create(ctx, CreateParams{Owner: owner, Content: "x"}); err != nil {
		t.Errorf("single char content: %v", err)
	}
	if _, err := s.Create(ctx, CreateParams{Content: "no owner"}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("empty owner: expected ErrValidation, got %v", err)
	}
}

func testMetadataValidation(t *testing.T, s Store, owner string) {
	_, err := s.Create(context.Background(), CreateParams{Owner: owner, Content: "x", Metadata: model.Metadata(`[1,2]`)})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if n := len(mustList(t, s, owner)); n != 0 {
		t.Errorf("expected no write, got %d records", n)
	}
}

func testListOrder(t *testing.T, s Store, owner string) {
	mustCreate(t, s, CreateParams{Owner: owner, Content: "Likes coffee", Importance: intPtr(8), Tags: []string{"preference"}})
	mustCreate(t, s, CreateParams{Owner: owner, Content: "Works remotely", Importance: intPtr(3)})
	mustCreate(t, s, CreateParams{Owner: owner + "-other", Content: "Not mine"})

	got := contents(mustList(t, s, owner))
	want := []string{"Works remotely", "Likes coffee"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	empty := mustList(t, s, owner+"-nobody")
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", empty)
	}
}

func testGet(t *testing.T, s Store, owner string) {
	ctx := context.Background()
	mem := mustCreate(t, s, CreateParams{Owner: owner, Content: "x"})

	got, err := s.Get(ctx, owner, mem.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "x" {
		t.Errorf("expected 'x', got %q", got.Content)
	}

	if _, err := s.Get(ctx, owner+"-other", mem.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("cross-owner get: expected ErrNotFound, got %v", err)
	}
}

func testUpdateNoFields(t *testing.T, s Store, owner string) {
	mem := mustCreate(t, s, CreateParams{
		Owner: owner, Content: "c", Importance: intPtr(7),
		Tags: []string{"a"}, Metadata: model.Metadata(`{"k":"v"}`),
	})

	got, err := s.Update(context.Background(), owner, mem.ID, model.Patch{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Content != "c" || got.Importance != 7 || !reflect.DeepEqual(got.Tags, []string{"a"}) ||
		string(got.Metadata) != `{"k":"v"}` || !got.CreatedAt.Equal(mem.CreatedAt) {
		t.Errorf("fields changed: %+v", got)
	}
	if !got.UpdatedAt.After(mem.UpdatedAt) {
		t.Errorf("updated_at did not advance: %v -> %v", mem.UpdatedAt, got.UpdatedAt)
	}

	stored := mustList(t, s, owner)[0]
	if !stored.UpdatedAt.Equal(got.UpdatedAt) {
		t.Errorf("stored updated_at %v, returned %v", stored.UpdatedAt, got.UpdatedAt)
	}
}

func testUpdatePartial(t *testing.T, s Store, owner string) {
	mem := mustCreate(t, s, CreateParams{Owner: owner, Content: "old", Importance: intPtr(2), Tags: []string{"a", "b"}})

	got, err := s.Update(context.Background(), owner, mem.ID, model.Patch{
		Importance: intPtr(10),
		Tags:       tagsPtr(),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Content != "old" || got.Importance != 10 || len(got.Tags) != 0 {
		t.Errorf("unexpected record %+v", got)
	}

	stored := mustList(t, s, owner)[0]
	if stored.Importance != 10 || len(stored.Tags) != 0 || stored.Content != "old" {
		t.Errorf("patch not persisted: %+v", stored)
	}
}

func testUpdateRejectsInvalid(t *testing.T, s Store, owner string) {
	ctx := context.Background()
	mem := mustCreate(t, s, CreateParams{Owner: owner, Content: "keep", Importance: intPtr(4)})

	patches := []model.Patch{
		{Content: strPtr("changed"), Importance: intPtr(0)},
		{Content: strPtr("changed"), Importance: intPtr(11)},
		{Content: strPtr(""), Importance: intPtr(6)},
	}
	for i, p := range patches {
		if _, err := s.Update(ctx, owner, mem.ID, p); !errors.Is(err, model.ErrValidation) {
			t.Errorf("patch %d: expected ErrValidation, got %v", i, err)
		}
	}

	stored := mustList(t, s, owner)[0]
	if stored.Content != "keep" || stored.Importance != 4 || !stored.UpdatedAt.Equal(mem.UpdatedAt) {
		t.Errorf("rejected update left a partial write: %+v", stored)
	}

	for _, v := range []int{1, 10} {
		if _, err := s.Update(ctx, owner, mem.ID, model.Patch{Importance: intPtr(v)}); err != nil {
			t.Errorf("importance %d: %v", v, err)
		}
	}
	if _, err := s.Update(ctx, owner, mem.ID, model.Patch{Content: strPtr("y")}); err != nil {
		t.Errorf("single char content: %v", err)
	}
}

func testUpdateNotFound(t *testing.T, s Store, owner string) {
	ctx := context.Background()
	mem := mustCreate(t, s, CreateParams{Owner: owner, Content: "mine"})

	_, err := s.Update(ctx, owner, "01NOSUCHID0000000000000000", model.Patch{Content: strPtr("x")})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing id: expected ErrNotFound, got %v", err)
	}

	_, err = s.Update(ctx, owner+"-other", mem.ID, model.Patch{Content: strPtr("stolen")})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("cross-owner: expected ErrNotFound, got %v", err)
	}
	if got := mustList(t, s, owner)[0].Content; got != "mine" {
		t.Errorf("cross-owner update modified record: %q", got)
	}
}

func testUpdateMovesToFront(t *testing.T, s Store, owner string) {
	first := mustCreate(t, s, CreateParams{Owner: owner, Content: "first"})
	mustCreate(t, s, CreateParams{Owner: owner, Content: "second"})

	if _, err := s.Update(context.Background(), owner, first.ID, model.Patch{}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got := contents(mustList(t, s, owner))
	if !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("expected touched record first, got %v", got)
	}
}

func testDelete(t *testing.T, s Store, owner string) {
	ctx := context.Background()
	mem := mustCreate(t, s, CreateParams{Owner: owner, Content: "x"})

	if err := s.Delete(ctx, owner, "01NOSUCHID0000000000000000"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing id: expected ErrNotFound, got %v", err)
	}

	crossErr := s.Delete(ctx, owner+"-other", mem.ID)
	if !errors.Is(crossErr, model.ErrNotFound) {
		t.Errorf("cross-owner: expected ErrNotFound, got %v", crossErr)
	}

	if err := s.Delete(ctx, owner, mem.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	again := s.Delete(ctx, owner, mem.ID)
	if !errors.Is(again, model.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", again)
	}
	if crossErr != nil && again != nil && crossErr.Error() != again.Error() {
		t.Errorf("cross-owner error %q leaks more than missing error %q", crossErr, again)
	}
	if n := len(mustList(t, s, owner)); n != 0 {
		t.Errorf("expected empty list, got %d", n)
	}
}

func testClear(t *testing.T, s Store, owner string) {
	ctx := context.Background()
	other := owner + "-other"
	for _, c := range []string{"a", "b", "c"} {
		mustCreate(t, s, CreateParams{Owner: owner, Content: c})
	}
	mustCreate(t, s, CreateParams{Owner: other, Content: "keep"})

	n, err := s.Clear(ctx, owner)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 deleted, got %d", n)
	}
	if len(mustList(t, s, owner)) != 0 {
		t.Error("expected empty list after clear")
	}
	if len(mustList(t, s, other)) != 1 {
		t.Error("clear touched another owner")
	}

	n, err = s.Clear(ctx, owner)
	if err != nil || n != 0 {
		t.Errorf("expected 0 deleted on empty owner, got %d (%v)", n, err)
	}
	s.Clear(ctx, other)
}

func testImport(t *testing.T, s Store, owner string) {
	ctx := context.Background()
	in := []model.Memory{
		{ID: "ignored", Owner: "someone-else", Content: "newest", Importance: 9, Tags: []string{"t"}},
		{Content: "oldest", Metadata: model.Metadata(`{"a":1}`)},
	}
	n, err := s.Import(ctx, owner, in)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported, got %d", n)
	}

	list := mustList(t, s, owner)
	if !reflect.DeepEqual(contents(list), []string{"newest", "oldest"}) {
		t.Errorf("import did not keep order: %v", contents(list))
	}
	if list[0].ID == "ignored" || list[0].Owner != owner || list[0].Importance != 9 {
		t.Errorf("unexpected imported record %+v", list[0])
	}
	if list[1].Importance != model.DefaultImportance || string(list[1].Metadata) != `{"a":1}` {
		t.Errorf("unexpected imported record %+v", list[1])
	}
}

func testImportAllOrNothing(t *testing.T, s Store, owner string) {
	_, err := s.Import(context.Background(), owner, []model.Memory{
		{Content: "fine"},
		{Content: ""},
	})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if n := len(mustList(t, s, owner)); n != 0 {
		t.Errorf("expected nothing imported, got %d", n)
	}
}
