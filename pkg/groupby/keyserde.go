// Copyright 2023 Matrix Origin
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

package groupby

import (
	"github.com/fossabot/druid/pkg/container/types"
)

type int32KeySerde struct{}

// NewInt32KeySerde returns the serde for dictionary-encoded int32 keys.
// The encoded form is the 4-byte native representation of the id, which
// is what the dense grouper reads its slot index from.
func NewInt32KeySerde() KeySerde[int32] {
	return int32KeySerde{}
}

func (int32KeySerde) KeySize() int {
	return types.Int32Size
}

func (int32KeySerde) Encode(dst []byte, key int32) bool {
	copy(dst[:types.Int32Size], types.EncodeInt32(&key))
	return true
}

func (int32KeySerde) Decode(src []byte, offset int) int32 {
	return types.DecodeInt32(src[offset:])
}

func (int32KeySerde) BufferComparator() BufferComparator {
	return func(lhs, rhs []byte, lhsOffset, rhsOffset int) int {
		l := types.DecodeInt32(lhs[lhsOffset:])
		r := types.DecodeInt32(rhs[rhsOffset:])
		switch {
		case l < r:
			return -1
		case l > r:
			return 1
		default:
			return 0
		}
	}
}
