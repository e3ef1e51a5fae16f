/*
Copyright © 2025 the vegremap authors.
This file is part of vegremap.

vegremap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

vegremap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with vegremap.  If not, see <http://www.gnu.org/licenses/>.
*/

package vegremaputil

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

// newBackOff returns the retry policy for downloads and uploads.
var newBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// retry runs op until it succeeds, returns a *backoff.PermanentError, the
// retry policy gives up, or ctx is done. Each retry is logged with the
// remote location it concerns.
func retry(ctx context.Context, log logrus.FieldLogger, location string, op backoff.Operation) error {
	return backoff.RetryNotify(
		op,
		backoff.WithContext(newBackOff(), ctx),
		func(err error, d time.Duration) {
			log.WithFields(logrus.Fields{
				"location": location,
				"retryIn":  d.String(),
			}).Warnf("%v: retrying", err)
		},
	)
}
