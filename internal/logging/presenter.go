// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"

	"sqlbench/cli/internal/httperrors"
)

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Mask(err.Error())
	}
	return fmt.Sprintf("%s: %s", context, Mask(err.Error()))
}

// PresentServiceError formats a failure talking to the Query Service at
// baseURL. Transport failures get a categorised explanation with hints;
// anything else falls back to PresentError.
func PresentServiceError(activity, baseURL string, err error) string {
	if err == nil {
		return ""
	}
	if httperrors.Classify(err) == httperrors.CategoryUnknown {
		return PresentError("Failed "+activity, err)
	}
	return Mask(httperrors.FormatNetworkError(err, activity, httperrors.ExtractHostFromURL(baseURL)))
}
