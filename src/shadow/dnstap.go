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
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"

	dnstap "github.com/dnstap/golang-dnstap"
	framestream "github.com/farsightsec/golang-framestream"
	"github.com/miekg/dns"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"

	"github.com/dnsscience/dnsmigrate/src/internal/safeblacklist"
	"github.com/dnsscience/dnsmigrate/src/model"
)

const (
	dnstapContentType = "protobuf:dnstap.Dnstap"
	// DefaultDnstapBuffer is the number of decoded queries held while the session loop is busy comparing.
	DefaultDnstapBuffer = 1024
)

// DnstapTap receives CLIENT_QUERY messages from a resolver's dnstap output on a unix socket. Queries arriving while
// the buffer is full are dropped and counted, so a slow comparison never backs up the resolver.
type DnstapTap struct {
	SocketPath string
	// Exclude drops queries from the listed client networks.
	Exclude *safeblacklist.SafeBlacklist
	Dropped atomic.Uint64

	buffer   int
	listener net.Listener
	wg       sync.WaitGroup
}

// ListenDnstap creates the socket at path, replacing a stale one.
func ListenDnstap(path string, buffer int) (*DnstapTap, error) {
	if buffer < 1 {
		buffer = DefaultDnstapBuffer
	}
	_ = os.Remove(path)
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, errors.Wrapf(err, "listening for dnstap on %s", path)
	}
	if err := os.Chmod(path, 0660); err != nil {
		_ = l.Close()
		return nil, errors.Wrapf(err, "setting permissions on %s", path)
	}
	return &DnstapTap{SocketPath: path, buffer: buffer, listener: l}, nil
}

// Queries accepts resolver connections until ctx is cancelled, then closes the socket and every connection.
func (t *DnstapTap) Queries(ctx context.Context) <-chan model.Query {
	out := make(chan model.Query, t.buffer)
	stop := context.AfterFunc(ctx, func() { _ = t.listener.Close() })

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer stop()
		for {
			conn, err := t.listener.Accept()
			if err != nil {
				return
			}
			t.wg.Add(1)
			go t.handleConn(ctx, conn, out)
		}
	}()
	go func() {
		<-ctx.Done()
		t.wg.Wait()
		_ = os.Remove(t.SocketPath)
		close(out)
		if n := t.Dropped.Load(); n > 0 {
			log.Warnf("dnstap %s: dropped %d queries while the comparator was busy", t.SocketPath, n)
		}
	}()
	return out
}

func (t *DnstapTap) handleConn(ctx context.Context, conn net.Conn, out chan<- model.Query) {
	defer t.wg.Done()
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	decoder, err := framestream.NewDecoder(conn, &framestream.DecoderOptions{
		ContentType:   []byte(dnstapContentType),
		Bidirectional: true,
	})
	if err != nil {
		log.Debugf("dnstap %s: handshake failed: %v", t.SocketPath, err)
		return
	}
	for {
		frame, err := decoder.Decode()
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				log.Debugf("dnstap %s: decode: %v", t.SocketPath, err)
			}
			return
		}
		q, ok := t.query(frame)
		if !ok {
			continue
		}
		select {
		case out <- q:
		default:
			t.Dropped.Add(1)
		}
	}
}

// query decodes one frame into the question of a client query.
func (t *DnstapTap) query(frame []byte) (model.Query, bool) {
	var dt dnstap.Dnstap
	if err := proto.Unmarshal(frame, &dt); err != nil {
		return model.Query{}, false
	}
	m := dt.GetMessage()
	if m == nil || m.GetType() != dnstap.Message_CLIENT_QUERY || len(m.GetQueryMessage()) == 0 {
		return model.Query{}, false
	}
	if t.Exclude != nil && t.Exclude.Contains(net.IP(m.GetQueryAddress())) {
		return model.Query{}, false
	}
	msg := new(dns.Msg)
	if err := msg.Unpack(m.GetQueryMessage()); err != nil || len(msg.Question) == 0 {
		return model.Query{}, false
	}
	question := msg.Question[0]
	q, err := model.NewQuery(question.Name, dns.TypeToString[question.Qtype])
	if err != nil {
		return model.Query{}, false
	}
	return q, true
}

func (t *DnstapTap) String() string {
	return "dnstap " + t.SocketPath
}
