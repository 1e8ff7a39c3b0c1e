// Package inmemdb implements the repositories in memory. The API tests run against it.
package inmemdb

import (
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/contact"
	"github.com/trezcool/khidmat/core/faq"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/offering"
	"github.com/trezcool/khidmat/core/page"
	"github.com/trezcool/khidmat/core/review"
	"github.com/trezcool/khidmat/core/translation"
	"github.com/trezcool/khidmat/core/user"
)

type table[T any] struct {
	mutex sync.RWMutex
	rows  map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) get(key string) (T, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	row, ok := t.rows[key]
	return row, ok
}

func (t *table[T]) put(key string, row T) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.rows[key] = row
}

// update applies fn to the row of `key` under the write lock.
func (t *table[T]) update(key string, fn func(*T)) (T, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	row, ok := t.rows[key]
	if !ok {
		return row, false
	}
	fn(&row)
	t.rows[key] = row
	return row, true
}

func (t *table[T]) updateWhere(match func(T) bool, fn func(*T)) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	var n int
	for k, row := range t.rows {
		if match(row) {
			fn(&row)
			t.rows[k] = row
			n++
		}
	}
	return n
}

func (t *table[T]) filter(keep func(T) bool) []T {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	rows := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

func (t *table[T]) deleteWhere(match func(T) bool) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	var n int
	for k, row := range t.rows {
		if match(row) {
			delete(t.rows, k)
			n++
		}
	}
	return n
}

type DB struct {
	users      *table[user.User]
	offerings  *table[offering.Offering]
	posts      *table[blog.Post]
	comments   *table[blog.Comment]
	faqs       *table[faq.FAQ]
	about      *table[page.About]
	statistics *table[page.Statistic]
	reviews    *table[review.Review]
	contacts   *table[contact.Submission]
}

func NewDB() *DB {
	return &DB{
		users:      newTable[user.User](),
		offerings:  newTable[offering.Offering](),
		posts:      newTable[blog.Post](),
		comments:   newTable[blog.Comment](),
		faqs:       newTable[faq.FAQ](),
		about:      newTable[page.About](),
		statistics: newTable[page.Statistic](),
		reviews:    newTable[review.Review](),
		contacts:   newTable[contact.Submission](),
	}
}

func rowKey(group string, lang i18n.Lang) string {
	return group + "/" + string(lang)
}

// lessFuncs compare two rows on one ordering field.
type lessFuncs[T any] map[string]func(a, b T) bool

// orderBy sorts rows by the first known ordering field, or by `fallback`.
func orderBy[T any](rows []T, ordering []core.DBOrdering, less lessFuncs[T], fallback func(a, b T) bool) {
	for _, ord := range ordering {
		if fn, ok := less[ord.Field]; ok {
			asc := ord.Ascending
			sort.SliceStable(rows, func(i, j int) bool {
				if asc {
					return fn(rows[i], rows[j])
				}
				return fn(rows[j], rows[i])
			})
			return
		}
	}
	if fallback != nil {
		sort.SliceStable(rows, func(i, j int) bool { return fallback(rows[i], rows[j]) })
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func pending[R translation.Row](rows []R) []translation.PendingRow {
	p := make([]translation.PendingRow, 0, len(rows))
	for _, r := range rows {
		if r.TranslationState() == translation.StateFallback {
			p = append(p, translation.PendingRow{Group: r.GroupKey(), Lang: r.Language()})
		}
	}
	sort.Slice(p, func(i, j int) bool {
		if p[i].Group == p[j].Group {
			return p[i].Lang < p[j].Lang
		}
		return p[i].Group < p[j].Group
	})
	return p
}
