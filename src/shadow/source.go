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

package shadow

import (
	"context"
	"fmt"
	"time"

	"github.com/dnsscience/dnsmigrate/src/model"
)

// Source feeds a session the queries it samples from.
type Source interface {
	// Queries starts the source. The channel is closed when the source ends or ctx is cancelled.
	Queries(ctx context.Context) <-chan model.Query
	String() string
}

// SyntheticSource replays a fixed query list in a loop, one query per Interval.
type SyntheticSource struct {
	List     []model.Query
	Interval time.Duration
	// Limit ends the source after that many queries; 0 cycles until cancelled.
	Limit int
}

func (s *SyntheticSource) Queries(ctx context.Context) <-chan model.Query {
	out := make(chan model.Query)
	go func() {
		defer close(out)
		if len(s.List) == 0 {
			return
		}
		var tick <-chan time.Time
		if s.Interval > 0 {
			ticker := time.NewTicker(s.Interval)
			defer ticker.Stop()
			tick = ticker.C
		}
		for i := 0; s.Limit == 0 || i < s.Limit; i++ {
			if tick != nil {
				select {
				case <-tick:
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- s.List[i%len(s.List)]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (s *SyntheticSource) String() string {
	return fmt.Sprintf("synthetic(%d queries every %s)", len(s.List), s.Interval)
}
