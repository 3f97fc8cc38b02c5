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
	"fmt"
)

const (
	// 0 - 99 is OK.  They do not contain info, and are special handled
	// using a static instance, no alloc.
	Ok    uint16 = 0
	OkMax uint16 = 99

	// Group 1: Internal errors
	ErrStart    uint16 = 20100
	ErrInternal uint16 = 20101

	// Group 2: numeric and functions
	ErrOutOfRange uint16 = 20201
	ErrInvalidArg uint16 = 20203

	// Group 3: invalid input
	ErrInvalidInput uint16 = 20301

	// Group 4: unexpected state
	ErrInvalidState uint16 = 20400

	ErrEnd uint16 = 65535
)

type errorInfo struct {
	sqlStatusCode    string
	errorMsgOrFormat string
}

var errorMsgRefer = map[uint16]errorInfo{
	ErrInternal:     {"HY000", "internal error: %s"},
	ErrOutOfRange:   {"22003", "data out of range: %s"},
	ErrInvalidArg:   {"HY000", "invalid argument %s, bad value %v"},
	ErrInvalidInput: {"22000", "invalid input: %s"},
	ErrInvalidState: {"HY000", "invalid state %s"},
}

type Error struct {
	code     uint16
	message  string
	sqlState string
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

func (e *Error) SqlState() string {
	return e.sqlState
}

func (e *Error) Succeeded() bool {
	return e.code < OkMax
}

// Is implements the errors.Is contract: two moerr errors match when
// their codes match.
func (e *Error) Is(err error) bool {
	me, ok := err.(*Error)
	return ok && me.code == e.code
}

func newError(code uint16, args ...any) *Error {
	info, ok := errorMsgRefer[code]
	if !ok {
		panic(fmt.Errorf("not used error code %d", code))
	}
	return &Error{
		code:     code,
		message:  fmt.Sprintf(info.errorMsgOrFormat, args...),
		sqlState: info.sqlStatusCode,
	}
}

// IsMoErrCode reports whether err is a moerr with the given code.
func IsMoErrCode(err error, code uint16) bool {
	if err == nil {
		return code == Ok
	}
	me, ok := err.(*Error)
	if !ok {
		return false
	}
	return me.code == code
}

func NewInternalErrorNoCtx(msg string) *Error {
	return newError(ErrInternal, msg)
}

func NewInternalErrorNoCtxf(format string, args ...any) *Error {
	return newError(ErrInternal, fmt.Sprintf(format, args...))
}

func NewOutOfRangeNoCtx(typ string, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ErrOutOfRange, fmt.Sprintf("data type %s, %s", typ, xmsg))
}

func NewInvalidArgNoCtx(arg string, val any) *Error {
	return newError(ErrInvalidArg, arg, val)
}

func NewInvalidInputNoCtx(msg string, args ...any) *Error {
	return newError(ErrInvalidInput, fmt.Sprintf(msg, args...))
}

func NewInvalidStateNoCtx(msg string, args ...any) *Error {
	return newError(ErrInvalidState, fmt.Sprintf(msg, args...))
}
