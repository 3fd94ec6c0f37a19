// Copyright (c) 2026 dotandev
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

package moduleio

import (
	"fmt"
	"os"
)

// Load reads path, dispatching by suffix and (if that's inconclusive) by
// magic-number sniff, and returns the decoded Module plus which format it
// was read as.
func Load(path string) (*Module, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("moduleio: %w", err)
	}
	format := DetectFormat(path, data)
	if format == FormatBinary {
		m, err := ParseBinary(data)
		return m, format, err
	}
	m, err := ParseText(string(data))
	return m, format, err
}

// Save writes m to path, choosing binary or text by the destination
// suffix (§6: "writing mirrors this").
func Save(path string, m *Module) error {
	format := WriteFormat(path)
	if format == FormatBinary {
		data, err := EncodeBinary(m)
		if err != nil {
			return fmt.Errorf("moduleio: %w", err)
		}
		return os.WriteFile(path, data, 0o644)
	}
	return os.WriteFile(path, []byte(RenderText(m)), 0o644)
}
