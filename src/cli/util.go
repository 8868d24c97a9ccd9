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
package cli

import (
	"encoding/json"
	"sync"

	"github.com/hashicorp/go-version"
	"github.com/liip/sheriff"
	"github.com/pkg/errors"
)

// marshalResult keeps the fields of v tagged with one of groups and encodes them as JSON.
func marshalResult(groups []string, v interface{}) (string, error) {
	ver, _ := version.NewVersion("0.0.0")
	o := &sheriff.Options{
		Groups:     groups,
		ApiVersion: ver,
	}
	data, err := sheriff.Marshal(o, v)
	if err != nil {
		return "", errors.Wrap(err, "unable to marshal result to JSON")
	}
	jsonRes, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrap(err, "unable to marshal JSON result")
	}
	return string(jsonRes), nil
}

// writeOutput sends lines through the output handler and returns once it has finished writing.
func writeOutput(handler OutputHandler, lines ...string) error {
	results := make(chan string)
	var wg sync.WaitGroup
	wg.Add(1)
	outErr := make(chan error, 1)
	go func() {
		outErr <- handler.WriteResults(results, &wg)
	}()
	for _, line := range lines {
		results <- line
	}
	close(results)
	wg.Wait()
	return <-outErr
}

func writeResult(gc *CLIConf, v interface{}) error {
	line, err := marshalResult(gc.OutputGroups, v)
	if err != nil {
		return err
	}
	return writeOutput(gc.OutputHandler, line)
}
