/*
 * DNSMigrate Copyright 2026 The DNSMigrate Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy
 * of the License at http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
 * implied. See the License for the specific language governing
 * permissions and limitations under the License.
 */

package cachehash

import (
	"container/list"
)

// CacheHash is a bounded LRU built from a hash map and a doubly linked list, most recently used entry at the front.
// Insertion and ejection are O(1). It is not safe for concurrent use; owners guard it themselves.
type CacheHash[K comparable, V any] struct {
	h      map[K]*list.Element
	l      *list.List
	maxLen int
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New returns an empty cache holding at most maxLen entries. maxLen below 1 is treated as 1.
func New[K comparable, V any](maxLen int) *CacheHash[K, V] {
	if maxLen < 1 {
		maxLen = 1
	}
	return &CacheHash[K, V]{h: make(map[K]*list.Element, maxLen), l: list.New(), maxLen: maxLen}
}

// Upsert stores v under k and moves k to the front, ejecting the least recently used entry if the cache is full.
// It reports whether k was already present.
func (c *CacheHash[K, V]) Upsert(k K, v V) bool {
	if e, ok := c.h[k]; ok {
		e.Value = entry[K, V]{k, v}
		c.l.MoveToFront(e)
		return true
	}
	if c.l.Len() >= c.maxLen {
		c.eject()
	}
	c.h[k] = c.l.PushFront(entry[K, V]{k, v})
	return false
}

func (c *CacheHash[K, V]) eject() {
	e := c.l.Back()
	if e == nil {
		return
	}
	kv := e.Value.(entry[K, V])
	delete(c.h, kv.key)
	c.l.Remove(e)
}

// Values returns the stored values, most recently used first.
func (c *CacheHash[K, V]) Values() []V {
	out := make([]V, 0, c.l.Len())
	for e := c.l.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(entry[K, V]).value)
	}
	return out
}
