// Copyright 2025-2026
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package loki ships log lines to a Grafana Loki server over the JSON
// push API. Loki implements zerolog.LevelWriter so it composes with the
// primary log output through zerolog.MultiLevelWriter.
package loki

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"
)

const (
	contentType  = "application/json"
	postPath     = "/loki/api/v1/push"
	maxErrMsgLen = 1024
)

type logLine struct {
	ts    time.Time
	level zerolog.Level
	line  string
}

type stream struct {
	Labels map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

type pushRequest struct {
	Streams []*stream `json:"streams"`
}

type Loki struct {
	LokiURL   string
	BatchWait time.Duration
	BatchSize int
	lineChan  chan *logLine
	execEnv   string
	data      map[model.LabelName]model.LabelValue
	wg        sync.WaitGroup
}

// New starts a background sender that batches log lines and pushes them
// to the Loki server at URL. batchSize is in bytes; batchWait in seconds.
func New(URL string, batchSize, batchWait int) (*Loki, error) {
	l := &Loki{
		LokiURL:   URL,
		BatchSize: batchSize,
		BatchWait: time.Duration(batchWait) * time.Second,
		lineChan:  make(chan *logLine, 1024),
		data:      make(map[model.LabelName]model.LabelValue),
	}

	if execEnv, ok := os.LookupEnv("EXECUTION_ENVIRONMENT"); ok {
		l.execEnv = execEnv
	} else {
		l.execEnv = "test"
	}

	u, err := url.Parse(l.LokiURL)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(u.Path, postPath) {
		u.Path = postPath
		q := u.Query()
		u.RawQuery = q.Encode()
		l.LokiURL = u.String()
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Close flushes any buffered lines and stops the background sender
func (l *Loki) Close() {
	close(l.lineChan)
	l.wg.Wait()
}

// AddData attaches an extra label to every pushed stream
func (l *Loki) AddData(key, value string) {
	l.data[model.LabelName(key)] = model.LabelValue(value)
}

// Write implements io.Writer. Lines written without a level are labeled
// as info.
func (l *Loki) Write(p []byte) (int, error) {
	return l.WriteLevel(zerolog.InfoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter. The buffer is copied before
// queueing because zerolog reuses it after the call returns.
func (l *Loki) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	l.lineChan <- &logLine{
		ts:    time.Now(),
		level: level,
		line:  strings.TrimRight(string(p), "\n"),
	}
	return len(p), nil
}

func (l *Loki) run() {
	var (
		curPktTime  time.Time
		lastPktTime time.Time
		maxWait     = time.NewTimer(l.BatchWait)
		batch       = map[model.Fingerprint]*stream{}
		batchSize   = 0
	)
	defer l.wg.Done()

	defer func() {
		if err := l.sendBatch(batch); err != nil {
			fmt.Fprintf(os.Stderr, "%v ERROR: loki flush: %v\n", time.Now(), err)
		}
	}()

	for {
		select {
		case ll, ok := <-l.lineChan:
			if !ok {
				return
			}
			curPktTime = ll.ts
			// guard against entry out of order errors
			if lastPktTime.After(curPktTime) {
				curPktTime = time.Now()
			}
			lastPktTime = curPktTime

			labels := model.LabelSet{
				"level": model.LabelValue(ll.level.String()),
				"env":   model.LabelValue(l.execEnv),
			}
			for key, value := range l.data {
				labels[key] = value
			}

			if batchSize+len(ll.line) > l.BatchSize {
				if err := l.sendBatch(batch); err != nil {
					fmt.Fprintf(os.Stderr, "%v ERROR: send size batch: %v\n", lastPktTime, err)
				}
				batchSize = 0
				batch = map[model.Fingerprint]*stream{}
				maxWait.Reset(l.BatchWait)
			}

			batchSize += len(ll.line)
			fp := labels.FastFingerprint()
			entry, ok := batch[fp]
			if !ok {
				labelMap := make(map[string]string, len(labels))
				for name, value := range labels {
					labelMap[string(name)] = string(value)
				}
				entry = &stream{Labels: labelMap}
				batch[fp] = entry
			}
			entry.Values = append(entry.Values,
				[2]string{strconv.FormatInt(curPktTime.UnixNano(), 10), ll.line})

		case <-maxWait.C:
			if len(batch) > 0 {
				if err := l.sendBatch(batch); err != nil {
					fmt.Fprintf(os.Stderr, "%v ERROR: send time batch: %v\n", lastPktTime, err)
				}
				batchSize = 0
				batch = map[model.Fingerprint]*stream{}
			}
			maxWait.Reset(l.BatchWait)
		}
	}
}

func (l *Loki) sendBatch(batch map[model.Fingerprint]*stream) error {
	if len(batch) == 0 {
		return nil
	}

	buf, err := encodeBatch(batch)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = l.send(ctx, buf)
	if err != nil {
		return err
	}
	return nil
}

func encodeBatch(batch map[model.Fingerprint]*stream) ([]byte, error) {
	req := pushRequest{
		Streams: make([]*stream, 0, len(batch)),
	}
	for _, entry := range batch {
		req.Streams = append(req.Streams, entry)
	}
	return json.Marshal(&req)
}

func (l *Loki) send(ctx context.Context, buf []byte) (int, error) {
	req, err := http.NewRequest("POST", l.LokiURL, bytes.NewReader(buf))
	if err != nil {
		return -1, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		scanner := bufio.NewScanner(io.LimitReader(resp.Body, maxErrMsgLen))
		line := ""
		if scanner.Scan() {
			line = scanner.Text()
		}
		err = fmt.Errorf("server returned HTTP status %s (%d): %s", resp.Status, resp.StatusCode, line)
	}
	return resp.StatusCode, err
}
