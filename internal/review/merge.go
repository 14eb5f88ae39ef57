package review

import (
	"slices"
	"strconv"
	"strings"

	"github.com/jonathan/resume-review/internal/types"
)

// field is one reviewable field of T
type field[T any] struct {
	name  string
	equal func(a, b T) bool
	take  func(dst *T, src T) // copy src's value for this field into dst
	show  func(T) string
}

// collection describes a keyed, ordered list of T. Work entries (keyed by id)
// and skill categories (keyed by name) share one merge implementation through it.
type collection[T any] struct {
	name   string
	kind   Kind
	key    func(T) string
	clone  func(T) T
	fields []field[T]
}

func (c collection[T]) path(key, subField string) ChangePath {
	return ChangePath{Kind: c.kind, Collection: c.name, Key: key, SubField: subField}
}

// index maps keys to items; the first occurrence of a key wins
func (c collection[T]) index(items []T) map[string]T {
	m := make(map[string]T, len(items))
	for _, item := range items {
		if _, dup := m[c.key(item)]; !dup {
			m[c.key(item)] = item
		}
	}
	return m
}

func stringField[T any](name string, get func(*T) *string) field[T] {
	return field[T]{
		name:  name,
		equal: func(a, b T) bool { return *get(&a) == *get(&b) },
		take:  func(dst *T, src T) { *get(dst) = *get(&src) },
		show:  func(v T) string { return strconv.Quote(*get(&v)) },
	}
}

func listField[T any](name string, get func(*T) *[]string) field[T] {
	return field[T]{
		name:  name,
		equal: func(a, b T) bool { return slices.Equal(*get(&a), *get(&b)) },
		take:  func(dst *T, src T) { *get(dst) = slices.Clone(*get(&src)) },
		show: func(v T) string {
			quoted := make([]string, len(*get(&v)))
			for i, s := range *get(&v) {
				quoted[i] = strconv.Quote(s)
			}
			return "[" + strings.Join(quoted, ", ") + "]"
		},
	}
}

func optionalStringField[T any](name string, get func(*T) **string) field[T] {
	return field[T]{
		name: name,
		equal: func(a, b T) bool {
			x, y := *get(&a), *get(&b)
			if x == nil || y == nil {
				return x == y
			}
			return *x == *y
		},
		take: func(dst *T, src T) {
			v := *get(&src)
			if v == nil {
				*get(dst) = nil
				return
			}
			cp := *v
			*get(dst) = &cp
		},
		show: func(v T) string {
			if x := *get(&v); x != nil {
				return strconv.Quote(*x)
			}
			return "null"
		},
	}
}

var scalarFields = []field[types.Basics]{
	stringField("name", func(b *types.Basics) *string { return &b.Name }),
	stringField("label", func(b *types.Basics) *string { return &b.Label }),
	stringField("email", func(b *types.Basics) *string { return &b.Email }),
	stringField("phone", func(b *types.Basics) *string { return &b.Phone }),
	stringField("url", func(b *types.Basics) *string { return &b.URL }),
	stringField("location", func(b *types.Basics) *string { return &b.Location }),
}

var workCollection = collection[types.WorkEntry]{
	name:  CollectionWork,
	kind:  KindItem,
	key:   func(w types.WorkEntry) string { return w.ID },
	clone: types.WorkEntry.Clone,
	fields: []field[types.WorkEntry]{
		stringField("company", func(w *types.WorkEntry) *string { return &w.Company }),
		stringField("position", func(w *types.WorkEntry) *string { return &w.Position }),
		stringField("startDate", func(w *types.WorkEntry) *string { return &w.StartDate }),
		optionalStringField("endDate", func(w *types.WorkEntry) **string { return &w.EndDate }),
		listField("highlights", func(w *types.WorkEntry) *[]string { return &w.Highlights }),
	},
}

var skillCollection = collection[types.SkillCategory]{
	name:  CollectionSkills,
	kind:  KindCategory,
	key:   func(s types.SkillCategory) string { return s.Name },
	clone: types.SkillCategory.Clone,
	fields: []field[types.SkillCategory]{
		listField("keywords", func(s *types.SkillCategory) *[]string { return &s.Keywords }),
	},
}

var (
	basicsFields = fieldNames(scalarFields)
	workFields   = fieldNames(workCollection.fields)
	skillFields  = fieldNames(skillCollection.fields)
)

func fieldNames[T any](fields []field[T]) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

// Resolve merges proposed into original according to decisions, keyed by
// ChangePath.String(); true accepts, false rejects and a missing key is pending.
//
// Pending scalars and fields of existing items keep the original value. Items that
// only the original has are kept unless their removal is confirmed with a rejection.
// Items that only the proposed document has are added only when accepted, after the
// original items. Education, projects and the document id always come from original.
//
// Resolve has no side effects and returns a fresh copy that shares no memory with its inputs.
func Resolve(original, proposed *types.Document, decisions map[string]bool) *types.Document {
	original, proposed = orEmpty(original), orEmpty(proposed)

	out := original.Clone()
	for _, f := range scalarFields {
		if decisions[Scalar(f.name).String()] {
			f.take(&out.Basics, proposed.Basics)
		}
	}
	out.Work = resolveCollection(workCollection, original.Work, proposed.Work, decisions)
	out.Skills = resolveCollection(skillCollection, original.Skills, proposed.Skills, decisions)
	return out
}

func resolveCollection[T any](c collection[T], original, proposed []T, decisions map[string]bool) []T {
	originalByKey := c.index(original)
	proposedByKey := c.index(proposed)

	out := make([]T, 0, len(original))
	for _, o := range original {
		key := c.key(o)
		accepted, decided := decisions[c.path(key, "").String()]

		p, shared := proposedByKey[key]
		if !shared {
			if decided && !accepted {
				continue
			}
			out = append(out, c.clone(o))
			continue
		}

		if merged, keep := c.mergeItem(o, p, key, accepted, decided, decisions); keep {
			out = append(out, merged)
		}
	}

	added := make(map[string]bool)
	for _, p := range proposed {
		key := c.key(p)
		if _, existing := originalByKey[key]; existing || added[key] {
			continue
		}
		if decisions[c.path(key, "").String()] {
			out = append(out, c.clone(p))
			added[key] = true
		}
	}

	if len(out) == 0 && original == nil {
		return nil
	}
	return out
}

// mergeItem resolves an item present on both sides. A sub-field decision always
// wins over the item decision; an undecided sub-field follows an item-level accept.
// An item-level reject drops the item only when every sub-field is pending: any
// sub-field decision, accept or reject, keeps the item with its resolved fields.
func (c collection[T]) mergeItem(o, p T, key string, itemAccepted, itemDecided bool, decisions map[string]bool) (T, bool) {
	merged := c.clone(o)
	subDecided := false
	for _, f := range c.fields {
		accepted, decided := decisions[c.path(key, f.name).String()]
		if decided {
			subDecided = true
		} else {
			accepted = itemDecided && itemAccepted
		}
		if accepted {
			f.take(&merged, p)
		}
	}
	if itemDecided && !itemAccepted && !subDecided {
		return merged, false
	}
	return merged, true
}

func orEmpty(doc *types.Document) *types.Document {
	if doc == nil {
		return &types.Document{}
	}
	return doc
}
