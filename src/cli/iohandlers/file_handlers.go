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
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/dnsscience/dnsmigrate/src/internal/util"
	"github.com/dnsscience/dnsmigrate/src/model"
)

// FileInputHandler reads a file, or stdin for "-".
type FileInputHandler struct {
	filepath string
}

func NewFileInputHandler(filepath string) *FileInputHandler {
	return &FileInputHandler{
		filepath: filepath,
	}
}

func (h *FileInputHandler) open() (io.ReadCloser, error) {
	if h.filepath == "" || h.filepath == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(h.filepath)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open input file")
	}
	return f, nil
}

// ReadAll returns the whole input, for configuration text.
func (h *FileInputHandler) ReadAll() (string, error) {
	f, err := h.open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", errors.Wrapf(err, "unable to read %s", h.name())
	}
	return string(b), nil
}

// ReadQueries parses one "domain [type]" query per line. An invalid line fails the whole file so that no
// comparison starts from a partial list.
func (h *FileInputHandler) ReadQueries() ([]model.Query, error) {
	f, err := h.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries []model.Query
	s := bufio.NewScanner(f)
	line := 0
	for s.Scan() {
		line++
		q, ok, err := ParseQueryLine(s.Text())
		if err != nil {
			return nil, errors.Wrapf(err, "%s line %d", h.name(), line)
		}
		if ok {
			queries = append(queries, q)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", h.name())
	}
	log.Debugf("read %d queries from %s", len(queries), h.name())
	return queries, nil
}

func (h *FileInputHandler) name() string {
	if h.filepath == "" || h.filepath == "-" {
		return "stdin"
	}
	return h.filepath
}

// ParseQueryLine parses "domain [type]". Blank lines and # comments are skipped and report ok=false.
func ParseQueryLine(line string) (model.Query, bool, error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return model.Query{}, false, nil
	case 1:
		fields = append(fields, "A")
	case 2:
	default:
		return model.Query{}, false, &model.ValidationError{Field: "query", Value: strings.TrimSpace(line), Reason: "expected \"domain [type]\""}
	}
	if !util.IsStringValidDomainName(strings.TrimSuffix(fields[0], ".")) {
		return model.Query{}, false, &model.ValidationError{Field: "domain", Value: fields[0], Reason: "not a valid domain name"}
	}
	q, err := model.NewQuery(fields[0], fields[1])
	if err != nil {
		return model.Query{}, false, err
	}
	return q, true, nil
}

// FileOutputHandler writes one result per line to a file, or stdout for "-".
type FileOutputHandler struct {
	filepath string
}

func NewFileOutputHandler(filepath string) *FileOutputHandler {
	return &FileOutputHandler{
		filepath: filepath,
	}
}

func (h *FileOutputHandler) WriteResults(results <-chan string, wg *sync.WaitGroup) error {
	defer wg.Done()

	var f *os.File
	if h.filepath == "" || h.filepath == "-" {
		f = os.Stdout
	} else {
		var err error
		f, err = os.OpenFile(h.filepath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, util.DefaultFilePermissions)
		if err != nil {
			// drain so the producer never blocks on a dead writer
			for range results {
			}
			return errors.Wrap(err, "unable to open output file")
		}
		defer func(f *os.File) {
			if err := f.Close(); err != nil {
				log.Errorf("unable to close output file: %v", err)
			}
		}(f)
	}
	for n := range results {
		if _, err := f.WriteString(n + "\n"); err != nil {
			for range results {
			}
			return errors.Wrap(err, "unable to write to output file")
		}
	}
	return nil
}
