// Copyright 2022 Matrix Origin
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

package moerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	err := NewInternalErrorNoCtx("boom")
	require.Equal(t, ErrInternal, err.ErrorCode())
	require.Equal(t, "internal error: boom", err.Error())
	require.False(t, err.Succeeded())

	err = NewInternalErrorNoCtxf("bad size %d", 42)
	require.Equal(t, "internal error: bad size 42", err.Error())

	err = NewInvalidArgNoCtx("cardinality", 0)
	require.Equal(t, ErrInvalidArg, err.ErrorCode())
	require.Equal(t, "invalid argument cardinality, bad value 0", err.Error())

	err = NewOutOfRangeNoCtx("record offset", "offset %d exceeds %d", 100, 64)
	require.Equal(t, ErrOutOfRange, err.ErrorCode())
	require.Equal(t, "data out of range: data type record offset, offset 100 exceeds 64", err.Error())

	err = NewInvalidStateNoCtx("not initialized")
	require.Equal(t, ErrInvalidState, err.ErrorCode())
	require.Equal(t, "HY000", err.SqlState())
}

func TestIsMoErrCode(t *testing.T) {
	require.True(t, IsMoErrCode(nil, Ok))
	require.False(t, IsMoErrCode(nil, ErrInternal))

	err := NewInvalidInputNoCtx("buffer too small: %d", 3)
	require.True(t, IsMoErrCode(err, ErrInvalidInput))
	require.False(t, IsMoErrCode(err, ErrInternal))
	require.False(t, IsMoErrCode(fmt.Errorf("plain"), ErrInternal))
}

func TestErrorsIs(t *testing.T) {
	err := NewInternalErrorNoCtx("a")
	wrapped := fmt.Errorf("outer: %w", err)
	require.True(t, errors.Is(wrapped, NewInternalErrorNoCtx("b")))
	require.False(t, errors.Is(wrapped, NewInvalidInputNoCtx("c")))
}

func TestUnusedCodePanics(t *testing.T) {
	require.Panics(t, func() {
		newError(uint16(12345))
	})
}
