// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import "syscall"

// ERROR_TOO_MANY_OPEN_FILES, ERROR_INVALID_HANDLE (the watched directory is
// gone) and ERROR_NOT_ENOUGH_MEMORY.
var fatalErrnos = []error{syscall.Errno(4), syscall.Errno(6), syscall.Errno(8)}
