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

package compare

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dnsscience/dnsmigrate/src/model"
)

type DifferenceKind string

const (
	RcodeMismatch DifferenceKind = "rcode_mismatch"
	MissingRecord DifferenceKind = "missing_record"
	ExtraRecord   DifferenceKind = "extra_record"
	DataMismatch  DifferenceKind = "data_mismatch"
	TTLMismatch   DifferenceKind = "ttl_mismatch"
	OrderMismatch DifferenceKind = "order_mismatch"
)

// Difference is one way the target's answer diverges from the source's. Source and Target hold the value seen on
// each side.
type Difference struct {
	Kind   DifferenceKind `json:"kind" groups:"short,normal,long"`
	Name   string         `json:"name,omitempty" groups:"short,normal,long"`
	Type   string         `json:"type,omitempty" groups:"short,normal,long"`
	Source string         `json:"source,omitempty" groups:"short,normal,long"`
	Target string         `json:"target,omitempty" groups:"short,normal,long"`
	Detail string         `json:"detail,omitempty" groups:"normal,long"`
}

func (d Difference) String() string {
	var sb strings.Builder
	sb.WriteString(string(d.Kind))
	if d.Name != "" {
		sb.WriteString(" " + d.Name + "/" + d.Type)
	}
	fmt.Fprintf(&sb, ": source=%q target=%q", d.Source, d.Target)
	if d.Detail != "" {
		sb.WriteString(" (" + d.Detail + ")")
	}
	return sb.String()
}

// Options relax the record comparison.
type Options struct {
	// IgnoreTTL moves TTL differences to the informational list.
	IgnoreTTL bool `json:"ignore_ttl"`
	// IgnoreOrder compares answers as multisets.
	IgnoreOrder bool `json:"ignore_order"`
}

type nameType struct {
	name, rtype string
}

// Diff compares two responses. The first list holds the differences that break a match; the second holds TTL
// differences suppressed by IgnoreTTL. Records are not compared when either side failed at the transport level.
func Diff(source, target *model.Response, opts Options) ([]Difference, []Difference) {
	diffs := make([]Difference, 0)
	var info []Difference

	srcErr, tgtErr := source.Rcode == model.StatusError, target.Rcode == model.StatusError
	switch {
	case srcErr && tgtErr:
		diffs = append(diffs, Difference{Kind: RcodeMismatch, Source: string(source.Rcode), Target: string(target.Rcode),
			Detail: "neither resolver answered: source: " + source.Error + "; target: " + target.Error})
	case source.Rcode != target.Rcode:
		d := Difference{Kind: RcodeMismatch, Source: string(source.Rcode), Target: string(target.Rcode)}
		if srcErr {
			d.Detail = source.Error
		} else if tgtErr {
			d.Detail = target.Error
		}
		diffs = append(diffs, d)
	}
	if srcErr || tgtErr {
		return diffs, info
	}

	// match every source record with the first unused target record with the same identity
	used := make([]bool, len(target.Records))
	byKey := make(map[model.RecordKey][]int, len(target.Records))
	for i, r := range target.Records {
		byKey[r.Key()] = append(byKey[r.Key()], i)
	}
	type matched struct{ src, tgt int }
	var pairs []matched
	var missing []int
	for i, r := range source.Records {
		candidates := byKey[r.Key()]
		if len(candidates) == 0 {
			missing = append(missing, i)
			continue
		}
		pairs = append(pairs, matched{i, candidates[0]})
		used[candidates[0]] = true
		byKey[r.Key()] = candidates[1:]
	}

	// an unmatched source and target record with the same owner and type are one data mismatch
	extraByNameType := make(map[nameType][]int)
	var extraOrder []int
	for i, r := range target.Records {
		if !used[i] {
			extraByNameType[nameType{r.Name, r.Type}] = append(extraByNameType[nameType{r.Name, r.Type}], i)
			extraOrder = append(extraOrder, i)
		}
	}
	pairedExtra := make(map[int]bool)
	for _, i := range missing {
		r := source.Records[i]
		nt := nameType{r.Name, r.Type}
		if candidates := extraByNameType[nt]; len(candidates) > 0 {
			t := target.Records[candidates[0]]
			extraByNameType[nt] = candidates[1:]
			pairedExtra[candidates[0]] = true
			diffs = append(diffs, Difference{Kind: DataMismatch, Name: r.Name, Type: r.Type, Source: r.Data, Target: t.Data})
			continue
		}
		diffs = append(diffs, Difference{Kind: MissingRecord, Name: r.Name, Type: r.Type, Source: r.Data})
	}
	for _, i := range extraOrder {
		if pairedExtra[i] {
			continue
		}
		t := target.Records[i]
		diffs = append(diffs, Difference{Kind: ExtraRecord, Name: t.Name, Type: t.Type, Target: t.Data})
	}

	for _, p := range pairs {
		s, t := source.Records[p.src], target.Records[p.tgt]
		if s.TTL == t.TTL {
			continue
		}
		d := Difference{Kind: TTLMismatch, Name: s.Name, Type: s.Type, Source: strconv.FormatUint(uint64(s.TTL), 10),
			Target: strconv.FormatUint(uint64(t.TTL), 10), Detail: s.Data}
		if opts.IgnoreTTL {
			info = append(info, d)
		} else {
			diffs = append(diffs, d)
		}
	}

	if !opts.IgnoreOrder && len(missing) == 0 && len(extraOrder) == 0 {
		for i, r := range source.Records {
			if r.Key() != target.Records[i].Key() {
				diffs = append(diffs, Difference{Kind: OrderMismatch, Name: r.Name, Type: r.Type,
					Source: joinData(source.Records), Target: joinData(target.Records), Detail: "same records in a different order"})
				break
			}
		}
	}
	return diffs, info
}

func joinData(records []model.Record) string {
	data := make([]string, 0, len(records))
	for _, r := range records {
		data = append(data, r.Data)
	}
	return strings.Join(data, ", ")
}
