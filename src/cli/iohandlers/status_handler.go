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

package iohandlers

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/internal/util"
	"github.com/dnsscience/dnsmigrate/src/shadow"
)

// StatusHandler prints the progress of a running shadow session.
type StatusHandler struct {
	filePath string
	interval time.Duration
}

func NewStatusHandler(filePath string) *StatusHandler {
	return &StatusHandler{
		filePath: filePath,
		interval: time.Second,
	}
}

// LogPeriodicUpdates prints a summary of session every interval until it finishes, then a final line with its end
// state.
func (h *StatusHandler) LogPeriodicUpdates(session *shadow.Session, wg *sync.WaitGroup) error {
	defer wg.Done()
	var f io.Writer
	if h.filePath == "" || h.filePath == "-" {
		f = os.Stderr
	} else {
		file, err := os.OpenFile(h.filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, util.DefaultFilePermissions)
		if err != nil {
			return errors.Wrap(err, "unable to open status file")
		}
		defer func(f *os.File) {
			if err := f.Close(); err != nil {
				log.Errorf("unable to close status file: %v", err)
			}
		}(file)
		f = file
	}
	if err := h.statusLoop(session, f); err != nil {
		return errors.Wrap(err, "error encountered in status loop")
	}
	return nil
}

func (h *StatusHandler) statusLoop(session *shadow.Session, statusFile io.Writer) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
statusLoop:
	for {
		select {
		case <-ticker.C:
			if _, err := io.WriteString(statusFile, statusLine(session.Snapshot(), "")); err != nil {
				return errors.Wrap(err, "unable to write periodic status update")
			}
		case <-session.Done():
			break statusLoop
		}
	}
	snap := session.Snapshot()
	if _, err := io.WriteString(statusFile, statusLine(snap, "Session "+string(snap.State))); err != nil {
		return errors.Wrap(err, "unable to write final status update")
	}
	return nil
}

func statusLine(snap *shadow.Snapshot, state string) string {
	end := snap.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	elapsed := end.Sub(snap.StartedAt)
	prefix := fmt.Sprintf("%02dh:%02dm:%02ds; ", int(elapsed.Hours()), int(elapsed.Minutes())%60, int(elapsed.Seconds())%60)
	if state != "" {
		prefix += state + "; "
	}
	rate := 0.0
	if elapsed > 0 {
		rate = float64(snap.Sampled) / elapsed.Seconds()
	}
	return fmt.Sprintf("%s%d queries seen; %d sampled; %.02f samples/sec; %.02f%% confidence; %d mismatches; %d errors; %d alerts\n",
		prefix,
		snap.Seen,
		snap.Sampled,
		rate,
		snap.ConfidenceScore*100,
		snap.Mismatches,
		snap.Errors,
		snap.Alerts)
}
