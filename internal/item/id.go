// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package item

import "github.com/oklog/ulid/v2"

// NewID returns a new item id: a millisecond timestamp followed by a
// random suffix, monotonic within the same millisecond.
func NewID() string {
	return ulid.Make().String()
}
