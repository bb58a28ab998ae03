// flex_list.go
//
// Versioned, soft-deletable hierarchical node store for the jam-build inventory tool
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-nodedb.
// jam-build-nodedb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-nodedb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-nodedb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IDList is a list of node ids that unmarshals from a single id, an array of ids,
// or a comma separated string such as "1,2,3".
type IDList []FlexID

// UnmarshalJSON implements the json.Unmarshaler interface.
func (l *IDList) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}

	switch data[0] {
	case '[':
		var ids []FlexID
		if err := json.Unmarshal(data, &ids); err != nil {
			return err
		}
		*l = ids
		return nil

	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		ids := make([]FlexID, 0)
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := ParseID(part)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		*l = ids
		return nil
	}

	var id FlexID
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("IDList: %w", err)
	}
	*l = IDList{id}
	return nil
}

// Uint64s converts the list to plain ids.
func (l IDList) Uint64s() []uint64 {
	out := make([]uint64, len(l))
	for i, id := range l {
		out[i] = id.Uint64()
	}
	return out
}
