// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// DefaultAccessTokenTTL is used when the service is built without an explicit TTL.
	DefaultAccessTokenTTL = 24 * time.Hour

	// DefaultCaptchaTTL is how long an issued challenge can be redeemed.
	DefaultCaptchaTTL = 5 * time.Minute

	// DefaultCaptchaLength is the number of digits in a challenge code.
	DefaultCaptchaLength = 4

	// MinPasswordLength applies to registration and provisioning.
	MinPasswordLength = 8

	// MinRotatedPasswordLength applies to change-password and force-change-password.
	MinRotatedPasswordLength = 6
)
