// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package export

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed boxscore.html.tmpl
var boxScoreTemplate string

var boxScore = template.Must(template.New("boxscore").Funcs(template.FuncMap{
	"inning": func(i int) int { return i + 1 },
	"teams":  func(d Document) []TeamLine { return []TeamLine{d.Away, d.Home} },
	"dict": func(kv ...any) (map[string]any, error) {
		if len(kv)%2 != 0 {
			return nil, fmt.Errorf("dict: odd number of arguments")
		}
		m := make(map[string]any, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			k, ok := kv[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
			}
			m[k] = kv[i+1]
		}
		return m, nil
	},
}).Parse(boxScoreTemplate))

// WriteHTML writes d as a standalone HTML page. The page has no external
// resources so it can be rendered offline.
func WriteHTML(w io.Writer, d Document) error {
	return boxScore.Execute(w, d)
}
