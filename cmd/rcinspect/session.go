package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/alloc"
	"github.com/wippyai/rc/errors"
	"github.com/wippyai/rc/resource"
	"github.com/wippyai/rc/shared"
)

const (
	kindStrong uint32 = iota + 1
	kindWeak
)

// session holds named pointers to int64 values and the allocator stack they
// live in: Tracking over Instrumented over the selected backing allocator.
type session struct {
	table    *resource.Table
	strong   *resource.Typed[*shared.Shared[int64]]
	weak     *resource.Typed[*shared.Weak[int64]]
	tracker  *alloc.Tracking
	registry *prometheus.Registry
	closer   func(context.Context) error
	backing  string
}

func newSession(ctx context.Context, backing string, size int) (*session, error) {
	base, closer, err := openAllocator(ctx, backing, size)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	inst, err := alloc.NewInstrumented(base, reg, backing)
	if err != nil {
		closer(ctx)
		return nil, err
	}

	table := resource.NewTable()
	return &session{
		table:    table,
		strong:   resource.NewTyped[*shared.Shared[int64]](table, kindStrong),
		weak:     resource.NewTyped[*shared.Weak[int64]](table, kindWeak),
		tracker:  alloc.NewTracking(inst),
		registry: reg,
		closer:   closer,
		backing:  backing,
	}, nil
}

func openAllocator(ctx context.Context, backing string, size int) (rc.Allocator, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	switch backing {
	case "heap":
		return alloc.Heap{}, noop, nil
	case "linear":
		pages := uint32((size + alloc.PageSize - 1) / alloc.PageSize)
		m, err := alloc.NewLinear(ctx, pages)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	case "mmap":
		return openMmap(size)
	default:
		return nil, nil, errors.InvalidInput(errors.PhaseParse, fmt.Sprintf("unknown allocator %q", backing))
	}
}

// close drops every pointer and releases the backing allocator. Blocks
// still live afterwards are reported as leaks.
func (s *session) close(ctx context.Context) error {
	s.table.Close()
	var leak error
	if n := len(s.tracker.Live()); n != 0 {
		leak = fmt.Errorf("%d blocks leaked", n)
	}
	if err := s.closer(ctx); err != nil {
		return err
	}
	return leak
}

type command struct {
	op   string
	args []string
}

var arity = map[string]int{
	"new":       2,
	"clone":     2,
	"downgrade": 2,
	"upgrade":   2,
	"drop":      1,
	"mut":       2,
	"getmut":    2,
	"unwrap":    1,
	"show":      0,
	"stats":     0,
	"help":      0,
}

// parseLine parses one script line. Blank lines and comments starting with
// '#' yield ok == false.
func parseLine(line string) (cmd command, ok bool, err error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, false, nil
	}

	op := strings.ToLower(fields[0])
	n, known := arity[op]
	if !known {
		return command{}, false, errors.InvalidInput(errors.PhaseParse, fmt.Sprintf("unknown command %q", fields[0]))
	}
	if len(fields)-1 != n {
		return command{}, false, errors.InvalidInput(errors.PhaseParse,
			fmt.Sprintf("%s takes %d arguments, got %d", op, n, len(fields)-1))
	}
	return command{op: op, args: fields[1:]}, true, nil
}

func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseParse, errors.KindInvalidInput, err, fmt.Sprintf("bad integer %q", s))
	}
	return v, nil
}

// exec runs one command and returns the text to print.
func (s *session) exec(cmd command) (string, error) {
	switch cmd.op {
	case "new":
		v, err := parseInt(cmd.args[1])
		if err != nil {
			return "", err
		}
		return s.setStrong(cmd.args[0], shared.NewIn[int64](s.tracker, v))

	case "clone":
		src, err := s.lookupStrong(cmd.args[1])
		if err != nil {
			return "", err
		}
		return s.setStrong(cmd.args[0], src.Clone())

	case "downgrade":
		src, err := s.lookupStrong(cmd.args[1])
		if err != nil {
			return "", err
		}
		if _, err := s.weak.Set(cmd.args[0], src.Downgrade()); err != nil {
			return "", err
		}
		return s.describe(cmd.args[0]), nil

	case "upgrade":
		w, err := s.lookupWeak(cmd.args[1])
		if err != nil {
			return "", err
		}
		p, ok := w.Upgrade()
		if !ok {
			return fmt.Sprintf("%s: value is gone, upgrade failed", cmd.args[1]), nil
		}
		return s.setStrong(cmd.args[0], p)

	case "drop":
		h, ok := s.table.Lookup(cmd.args[0])
		if !ok {
			return "", errors.NotFound(errors.PhaseAccess, "pointer", cmd.args[0])
		}
		s.table.Remove(h)
		return fmt.Sprintf("%s dropped", cmd.args[0]), nil

	case "mut", "getmut":
		p, err := s.lookupStrong(cmd.args[0])
		if err != nil {
			return "", err
		}
		delta, err := parseInt(cmd.args[1])
		if err != nil {
			return "", err
		}
		if cmd.op == "mut" {
			*p.MakeMut() += delta
		} else {
			v, _ := p.GetMut()
			*v += delta
		}
		return s.describe(cmd.args[0]), nil

	case "unwrap":
		p, err := s.lookupStrong(cmd.args[0])
		if err != nil {
			return "", err
		}
		v, ok := p.TryUnwrap()
		if !ok {
			return fmt.Sprintf("%s: %d strong pointers, unwrap failed", cmd.args[0], p.StrongCount()), nil
		}
		h, _ := s.table.Lookup(cmd.args[0])
		s.table.Take(h)
		return fmt.Sprintf("%s unwrapped: %d", cmd.args[0], v), nil

	case "show":
		return s.show(), nil

	case "stats":
		return s.stats()

	case "help":
		return usage, nil
	}
	return "", errors.InvalidInput(errors.PhaseParse, "unknown command "+cmd.op)
}

const usage = `commands:
  new NAME INT        allocate a value
  clone DST SRC       clone a strong pointer
  downgrade DST SRC   make a weak pointer
  upgrade DST WEAK    upgrade a weak pointer
  drop NAME           drop a pointer
  mut NAME DELTA      add DELTA through MakeMut (copy on write)
  getmut NAME DELTA   add DELTA through GetMut (no uniqueness check)
  unwrap NAME         move the value out if NAME is the only strong pointer
  show                list pointers
  stats               allocator statistics`

func (s *session) setStrong(name string, p *shared.Shared[int64]) (string, error) {
	if _, err := s.strong.Set(name, p); err != nil {
		p.Drop()
		return "", err
	}
	return s.describe(name), nil
}

func (s *session) lookupStrong(name string) (*shared.Shared[int64], error) {
	p, ok := s.strong.Lookup(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseAccess, "strong pointer", name)
	}
	return p, nil
}

func (s *session) lookupWeak(name string) (*shared.Weak[int64], error) {
	w, ok := s.weak.Lookup(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseAccess, "weak pointer", name)
	}
	return w, nil
}

// row is one line of the pointer listing.
type row struct {
	name   string
	kind   string
	value  string
	strong uint
	weak   uint
}

func (s *session) rows() []row {
	var rows []row
	s.table.Each(func(h resource.Handle, typeID uint32, value any) bool {
		r := row{name: s.table.NameOf(h)}
		switch v := value.(type) {
		case *shared.Shared[int64]:
			r.kind = "strong"
			r.value = fmt.Sprintf("%d @%#x", v.Value(), v.Addr())
			r.strong, r.weak = v.StrongCount(), v.WeakCount()
		case *shared.Weak[int64]:
			r.kind = "weak"
			r.strong, r.weak = v.StrongCount(), v.WeakCount()
			r.value = "-"
			if p, ok := v.Upgrade(); ok {
				r.value = fmt.Sprintf("%d @%#x", p.Value(), p.Addr())
				p.Drop()
			}
		}
		rows = append(rows, r)
		return true
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })
	return rows
}

func (s *session) describe(name string) string {
	for _, r := range s.rows() {
		if r.name == name {
			return formatRow(r)
		}
	}
	return name + ": not found"
}

func formatRow(r row) string {
	return fmt.Sprintf("%-8s %-6s %-24s strong=%d weak=%d", r.name, r.kind, r.value, r.strong, r.weak)
}

func (s *session) show() string {
	rows := s.rows()
	if len(rows) == 0 {
		return "(no pointers)"
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = formatRow(r)
	}
	return strings.Join(lines, "\n")
}

func (s *session) stats() (string, error) {
	st := s.tracker.Stats()
	var b strings.Builder
	fmt.Fprintf(&b, "allocator  %s\n", s.backing)
	fmt.Fprintf(&b, "allocs     %s\n", humanize.Comma(int64(st.Allocs)))
	fmt.Fprintf(&b, "frees      %s\n", humanize.Comma(int64(st.Frees)))
	fmt.Fprintf(&b, "live       %s blocks, %s\n", humanize.Comma(int64(st.LiveBlocks)), humanize.IBytes(st.LiveBytes))
	fmt.Fprintf(&b, "peak       %s", humanize.IBytes(st.PeakBytes))

	families, err := s.registry.Gather()
	if err != nil {
		return "", err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			}
			fmt.Fprintf(&b, "\n%-28s %s", mf.GetName(), humanize.Ftoa(v))
		}
	}
	return b.String(), nil
}
