package shared

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
)

func TestNew_Counts(t *testing.T) {
	p := NewIn(tracked(t), 75)
	defer p.Drop()

	if p.StrongCount() != 1 {
		t.Fatalf("Expected strong 1, got %d", p.StrongCount())
	}
	if p.WeakCount() != 0 {
		t.Fatalf("Expected weak 0, got %d", p.WeakCount())
	}
	if !p.IsUnique() {
		t.Fatal("Expected new pointer to be unique")
	}
	if p.Value() != 75 {
		t.Fatalf("Expected 75, got %d", p.Value())
	}
}

func TestClone_Counts(t *testing.T) {
	p := NewIn(tracked(t), "x")
	defer p.Drop()
	w := p.Downgrade()
	defer w.Drop()

	c := p.Clone()
	if p.StrongCount() != 2 || c.StrongCount() != 2 {
		t.Fatalf("Expected strong 2, got %d", p.StrongCount())
	}
	if p.WeakCount() != 1 {
		t.Fatalf("Clone must not change weak count, got %d", p.WeakCount())
	}
	if !PtrEqual(p, c) {
		t.Fatal("Expected clone to share the block")
	}
	if p.IsUnique() {
		t.Fatal("Expected shared pointer not to be unique")
	}

	c.Drop()
	if p.StrongCount() != 1 {
		t.Fatalf("Expected strong 1 after dropping clone, got %d", p.StrongCount())
	}
}

func TestDrop_Idempotent(t *testing.T) {
	p := NewIn(tracked(t), 1)
	p.Drop()
	p.Drop()
	if p.Alive() {
		t.Fatal("Expected dropped handle to be dead")
	}

	var nilPtr *Shared[int]
	nilPtr.Drop()
}

func TestConsumedHandlePanics(t *testing.T) {
	p := NewIn(tracked(t), 1)
	p.Drop()

	expectConsumed(t, func() { p.Clone() })
	expectConsumed(t, func() { p.StrongCount() })
	expectConsumed(t, func() { p.Downgrade() })
	expectConsumed(t, func() { p.MakeMut() })

	if _, ok := p.GetMut(); ok {
		t.Fatal("Expected GetMut to fail on a consumed handle")
	}
}

func TestGetMut_IgnoresAliases(t *testing.T) {
	p := NewIn(tracked(t), 75)
	defer p.Drop()
	c := p.Clone()
	defer c.Drop()
	w := p.Downgrade()
	defer w.Drop()

	m, ok := p.GetMut()
	if !ok {
		t.Fatal("Expected GetMut to succeed while aliased")
	}
	*m = 100

	if c.Value() != 100 {
		t.Fatalf("Expected write to be visible through clone, got %d", c.Value())
	}
	u, ok := w.Upgrade()
	if !ok {
		t.Fatal("Expected upgrade to succeed")
	}
	defer u.Drop()
	if u.Value() != 100 {
		t.Fatalf("Expected write to be visible through weak, got %d", u.Value())
	}
}

func TestMakeMut_Unique(t *testing.T) {
	p := NewIn(tracked(t), 75)
	defer p.Drop()
	addr := p.Addr()

	*p.MakeMut() += 1
	if p.Addr() != addr {
		t.Fatal("Expected unique pointer to be mutated in place")
	}
	if p.Value() != 76 {
		t.Fatalf("Expected 76, got %d", p.Value())
	}
}

func TestMakeMut_LeavesUnique(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *Shared[int]) (cleanup func())
	}{
		{"alone", func(*Shared[int]) func() { return func() {} }},
		{"clone", func(p *Shared[int]) func() { return p.Clone().Drop }},
		{"weak", func(p *Shared[int]) func() { return p.Downgrade().Drop }},
		{"clone and weak", func(p *Shared[int]) func() {
			c := p.Clone()
			w := p.Downgrade()
			return func() { c.Drop(); w.Drop() }
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewIn(tracked(t), 1)
			cleanup := tt.setup(p)
			*p.MakeMut() = 2
			if !p.IsUnique() {
				t.Fatalf("Expected unique after MakeMut, strong %d weak %d", p.StrongCount(), p.WeakCount())
			}
			cleanup()
			p.Drop()
		})
	}
}

func TestScenarioA(t *testing.T) {
	a := tracked(t)
	p0 := NewIn(a, 75)
	p1 := p0.Clone()
	p2 := p1.Clone()

	*p0.MakeMut() += 1
	*p1.MakeMut() += 2
	*p2.MakeMut() += 3

	if p0.Value() != 76 || p1.Value() != 77 || p2.Value() != 78 {
		t.Fatalf("Expected 76 77 78, got %d %d %d", p0.Value(), p1.Value(), p2.Value())
	}
	if Equal(p0, p1) || Equal(p1, p2) || Equal(p0, p2) {
		t.Fatal("Expected pairwise unequal values")
	}

	p0.Drop()
	p1.Drop()
	p2.Drop()
}

func TestScenarioB(t *testing.T) {
	a := tracked(t)
	p0 := NewIn(a, 75)
	p1 := p0.Clone()

	*p0.MakeMut() += 1

	if p0.Value() != 76 {
		t.Fatalf("Expected p0 == 76, got %d", p0.Value())
	}
	if p1.Value() != 75 {
		t.Fatalf("Expected p1 == 75, got %d", p1.Value())
	}
	if p0.StrongCount() != 1 || p1.StrongCount() != 1 {
		t.Fatal("Expected both pointers unique after the fork")
	}

	p0.Drop()
	p1.Drop()
}

func TestScenarioC(t *testing.T) {
	a := tracked(t)
	p0 := NewIn(a, 75)
	w := p0.Downgrade()

	u, ok := w.Upgrade()
	if !ok {
		t.Fatal("Expected upgrade to succeed")
	}
	if u.Value() != 75 {
		t.Fatalf("Expected 75, got %d", u.Value())
	}
	u.Drop()

	*p0.MakeMut() += 1
	if p0.Value() != 76 {
		t.Fatalf("Expected 76, got %d", p0.Value())
	}
	if _, ok := w.Upgrade(); ok {
		t.Fatal("Expected upgrade to fail after MakeMut detached the value")
	}

	w.Drop()
	p0.Drop()
}

func TestScenarioD(t *testing.T) {
	p := NewIn(tracked(t), 75)
	w1 := p.Downgrade()
	if p.StrongCount() != 1 || p.WeakCount() != 1 {
		t.Fatalf("Expected strong 1 weak 1, got %d %d", p.StrongCount(), p.WeakCount())
	}

	w1.Drop()
	if p.StrongCount() != 1 || p.WeakCount() != 0 {
		t.Fatalf("Expected strong 1 weak 0, got %d %d", p.StrongCount(), p.WeakCount())
	}

	c := p.Clone()
	if p.StrongCount() != 2 || p.WeakCount() != 0 {
		t.Fatalf("Expected strong 2 weak 0, got %d %d", p.StrongCount(), p.WeakCount())
	}
	c.Drop()
	p.Drop()
}

func TestTryUnwrap(t *testing.T) {
	t.Run("unique", func(t *testing.T) {
		p := NewIn(tracked(t), 3)
		if !p.WouldUnwrap() {
			t.Fatal("Expected WouldUnwrap")
		}
		v, ok := p.TryUnwrap()
		if !ok || v != 3 {
			t.Fatalf("Expected (3, true), got (%d, %v)", v, ok)
		}
		if p.Alive() {
			t.Fatal("Expected handle to be consumed")
		}
		p.Drop()
	})

	t.Run("shared", func(t *testing.T) {
		p := NewIn(tracked(t), 4)
		c := p.Clone()
		if p.WouldUnwrap() {
			t.Fatal("Expected WouldUnwrap to be false")
		}
		if _, ok := p.TryUnwrap(); ok {
			t.Fatal("Expected TryUnwrap to fail")
		}
		if !p.Alive() || p.StrongCount() != 2 || p.Value() != 4 {
			t.Fatal("Expected failed TryUnwrap to leave the handle unchanged")
		}
		c.Drop()

		v, ok := p.TryUnwrap()
		if !ok || v != 4 {
			t.Fatalf("Expected (4, true), got (%d, %v)", v, ok)
		}
	})

	t.Run("with weak", func(t *testing.T) {
		p := NewIn(tracked(t), 5)
		w := p.Downgrade()

		v, ok := p.TryUnwrap()
		if !ok || v != 5 {
			t.Fatalf("Expected (5, true), got (%d, %v)", v, ok)
		}
		if _, ok := w.Upgrade(); ok {
			t.Fatal("Expected upgrade to fail after unwrap")
		}
		if w.StrongCount() != 0 || w.WeakCount() != 1 {
			t.Fatalf("Expected strong 0 weak 1, got %d %d", w.StrongCount(), w.WeakCount())
		}
		w.Drop()
	})
}

func TestDropper_CalledOnce(t *testing.T) {
	t.Run("last drop", func(t *testing.T) {
		n := 0
		p := NewIn(tracked(t), dropCounter{&n})
		c := p.Clone()
		p.Drop()
		if n != 0 {
			t.Fatal("Expected no Drop while a clone is alive")
		}
		c.Drop()
		if n != 1 {
			t.Fatalf("Expected 1 Drop, got %d", n)
		}
	})

	t.Run("unwrap moves", func(t *testing.T) {
		n := 0
		p := NewIn(tracked(t), dropCounter{&n})
		w := p.Downgrade()
		v, _ := p.TryUnwrap()
		w.Drop()
		if n != 0 {
			t.Fatalf("Expected unwrapped value not to be dropped, got %d", n)
		}
		v.Drop()
	})

	t.Run("detach moves", func(t *testing.T) {
		n := 0
		p := NewIn(tracked(t), dropCounter{&n})
		w := p.Downgrade()
		p.MakeMut()
		w.Drop()
		if n != 0 {
			t.Fatalf("Expected moved value not to be dropped, got %d", n)
		}
		p.Drop()
		if n != 1 {
			t.Fatalf("Expected 1 Drop, got %d", n)
		}
	})

	t.Run("fork", func(t *testing.T) {
		n := 0
		p := NewIn(tracked(t), cloneCounter{&n})
		c := p.Clone()
		p.MakeMut()
		p.Drop()
		c.Drop()
		if n != 2 {
			t.Fatalf("Expected original and fork dropped, got %d", n)
		}
	})
}

type tagged struct {
	tags []string
}

func (t *tagged) Clone() tagged {
	return tagged{tags: append([]string(nil), t.tags...)}
}

func TestMakeMut_UsesCloner(t *testing.T) {
	p := NewIn(tracked(t), tagged{tags: []string{"a"}})
	c := p.Clone()

	m := p.MakeMut()
	m.tags[0] = "b"

	if c.Borrow().tags[0] != "a" {
		t.Fatalf("Expected clone to keep its tags, got %v", c.Borrow().tags)
	}
	p.Drop()
	c.Drop()
}

// forkCase checks that a value built by orig forks cleanly: after MakeMut and
// mutate, the clone taken before still equals orig() and p does not.
func forkCase[T any](orig func() T, mutate func(*T)) func(t *testing.T) {
	return func(t *testing.T) {
		p := NewIn(tracked(t), orig())
		q := p.Clone()

		mutate(p.MakeMut())

		if !p.IsUnique() {
			t.Fatalf("Expected unique after fork, strong %d weak %d", p.StrongCount(), p.WeakCount())
		}
		if !reflect.DeepEqual(q.Value(), orig()) {
			t.Fatalf("Expected clone to keep %v, got %v", orig(), q.Value())
		}
		if reflect.DeepEqual(p.Value(), orig()) {
			t.Fatalf("Expected mutation on the fork, got %v", p.Value())
		}
		p.Drop()
		q.Drop()
	}
}

type record struct {
	name   string
	scores []int
	next   *record
}

func TestMakeMut_ForkCopiesData(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"slice", forkCase(
			func() []int { return []int{75, 1} },
			func(v *[]int) { (*v)[0] = 76 })},
		{"map", forkCase(
			func() map[string]int { return map[string]int{"a": 75} },
			func(v *map[string]int) { (*v)["a"] = 76 })},
		{"nested slice", forkCase(
			func() [][]int { return [][]int{{1}, {2}} },
			func(v *[][]int) { (*v)[1][0] = 9 })},
		{"map of slices", forkCase(
			func() map[string][]string { return map[string][]string{"k": {"x"}} },
			func(v *map[string][]string) { (*v)["k"][0] = "y" })},
		{"array of slices", forkCase(
			func() [2][]int { return [2][]int{{1}, {2}} },
			func(v *[2][]int) { v[0][0] = 5 })},
		{"struct with unexported slice", forkCase(
			func() record { return record{name: "r", scores: []int{1, 2}} },
			func(v *record) { v.scores[1] = 3 })},
		{"nil pointer field", forkCase(
			func() record { return record{name: "r"} },
			func(v *record) { v.name = "s" })},
		{"elements with Cloner", forkCase(
			func() []tagged { return []tagged{{tags: []string{"a"}}} },
			func(v *[]tagged) { (*v)[0].tags[0] = "b" })},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

type res struct {
	n *int
}

func (r *res) Drop() { *r.n++ }

func TestMakeMut_RefusesSharedFork(t *testing.T) {
	panicOnFatal(t)

	tests := []struct {
		name string
		run  func(t *testing.T) (drops int)
	}{
		{"pointer dropper", func(t *testing.T) int {
			n := 0
			p := NewIn(tracked(t), &res{&n})
			q := p.Clone()
			expectFatal(t, func() { p.MakeMut() })
			if p.StrongCount() != 2 || !PtrEqual(p, q) {
				t.Fatal("Expected failed fork to leave the pointer untouched")
			}
			p.Drop()
			q.Drop()
			return n
		}},
		{"value dropper", func(t *testing.T) int {
			n := 0
			p := NewIn(tracked(t), dropCounter{&n})
			q := p.Clone()
			expectFatal(t, func() { p.MakeMut() })
			p.Drop()
			q.Drop()
			return n
		}},
		{"inline droppers", func(t *testing.T) int {
			n := 0
			p := NewSliceIn(tracked(t), []dropCounter{{&n}, {&n}})
			q := p.Clone()
			expectFatal(t, func() { p.MakeMut() })
			p.Drop()
			q.Drop()
			return n / 2
		}},
		{"pointer without Cloner", func(t *testing.T) int {
			p := NewIn(tracked(t), record{next: &record{}})
			q := p.Clone()
			expectFatal(t, func() { p.MakeMut() })
			p.Drop()
			q.Drop()
			return 1
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if n := tt.run(t); n != 1 {
				t.Fatalf("Expected Drop to run once, ran %d times", n)
			}
		})
	}
}

func TestMakeMut_ForkDroppersWithCloner(t *testing.T) {
	t.Run("value", func(t *testing.T) {
		n := 0
		p := NewIn(tracked(t), cloneCounter{&n})
		q := p.Clone()
		p.MakeMut()
		q.Drop()
		if n != 1 {
			t.Fatalf("Expected original dropped once, got %d", n)
		}
		p.Drop()
		if n != 2 {
			t.Fatalf("Expected fork dropped once, got %d", n)
		}
	})

	t.Run("inline", func(t *testing.T) {
		n := 0
		p := NewSliceIn(tracked(t), []cloneCounter{{&n}, {&n}, {&n}})
		q := p.Clone()
		p.MakeMut()
		p.Drop()
		q.Drop()
		if n != 6 {
			t.Fatalf("Expected each element of both blocks dropped once, got %d", n)
		}
	})
}

type point struct {
	X, Y int
}

func TestFormat(t *testing.T) {
	p := NewIn(tracked(t), 75)
	defer p.Drop()
	q := NewIn(tracked(t), point{1, 2})
	defer q.Drop()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"v", fmt.Sprintf("%v", p), "75"},
		{"width", fmt.Sprintf("%5d", p), "   75"},
		{"hex", fmt.Sprintf("%#x", p), "0x4b"},
		{"string", p.String(), "75"},
		{"struct", fmt.Sprintf("%+v", q), "{X:1 Y:2}"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, tt.got)
		}
	}

	d := NewIn(tracked(t), 1)
	d.Drop()
	if got := fmt.Sprint(d); got != "(dropped)" {
		t.Fatalf("Expected (dropped), got %q", got)
	}
}

func TestMarshalJSON(t *testing.T) {
	p := NewIn(tracked(t), point{1, 2})
	defer p.Drop()

	out, err := json.Marshal(struct {
		P *Shared[point]
	}{p})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"P":{"X":1,"Y":2}}` {
		t.Fatalf("Unexpected JSON: %s", out)
	}
}

func TestDefaultAllocator(t *testing.T) {
	prev := DefaultAllocator()
	tr := tracked(t)
	SetDefaultAllocator(tr)
	defer SetDefaultAllocator(prev)

	p := New(1)
	if p.Allocator() != tr {
		t.Fatal("Expected New to use the default allocator")
	}
	if tr.Stats().Allocs != 1 {
		t.Fatalf("Expected 1 allocation, got %d", tr.Stats().Allocs)
	}
	p.Drop()
}

func BenchmarkCloneDrop(b *testing.B) {
	p := New(1)
	defer p.Drop()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.Clone().Drop()
	}
}

func BenchmarkMakeMutFork(b *testing.B) {
	p := New(1)
	defer p.Drop()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c := p.Clone()
		*c.MakeMut() = i
		c.Drop()
	}
}
