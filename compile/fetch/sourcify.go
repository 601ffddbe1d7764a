// Copyright 2025 The archon-compile Authors
// This file is part of the archon-compile library.
//
// The archon-compile library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The archon-compile library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the archon-compile library. If not, see <http://www.gnu.org/licenses/>.

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// sourcifyBackend queries Sourcify's full-match repository API, returning
// every file under files/any for a verified address.
type sourcifyBackend struct {
	BaseURL string
	Client  *http.Client
}

// NewSourcifyBackend returns the default Sourcify backend.
func NewSourcifyBackend() Backend {
	return &sourcifyBackend{
		BaseURL: "https://sourcify.dev/server",
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *sourcifyBackend) Name() Service { return ServiceSourcify }

// chainID extracts the numeric chain id from a "sourcify-1" or
// "sourcify-0x<hex>" tag.
func chainID(tag string) string {
	id := strings.TrimPrefix(tag, "sourcify-")
	if strings.HasPrefix(id, "0x") {
		if n, err := strconv.ParseInt(id[2:], 16, 64); err == nil {
			return strconv.FormatInt(n, 10)
		}
	}
	return id
}

func (b *sourcifyBackend) Resolve(ctx context.Context, target ParsedTarget, apiKey string) (*ResolvedSource, error) {
	chain := chainID(target.SourcifyTag)
	if chain == "" {
		chain = "1"
	}
	url := fmt.Sprintf("%s/files/any/%s/%s", b.BaseURL, chain, target.Address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitedError{}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotVerifiedError{Address: target.Address}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	status := gjson.GetBytes(body, "status").String()
	if status == "false" {
		return nil, &NotVerifiedError{Address: target.Address}
	}

	files := make(map[string]string)
	var contractName string
	gjson.GetBytes(body, "files").ForEach(func(_, f gjson.Result) bool {
		name := f.Get("name").String()
		content := f.Get("content").String()
		if strings.HasSuffix(name, "metadata.json") {
			// compilationTarget is {"path/File.sol": "ContractName"}; take
			// the first value.
			gjson.Get(content, "settings.compilationTarget").ForEach(func(_, v gjson.Result) bool {
				contractName = v.String()
				return false
			})
			return true
		}
		files[name] = content
		return true
	})

	if len(files) == 0 {
		return nil, &NotVerifiedError{Address: target.Address}
	}
	if contractName == "" {
		contractName = target.Address
	}

	return &ResolvedSource{ContractName: contractName, Files: files}, nil
}
