package contact

import "errors"

var ErrSubmissionNotFound = errors.New("submission not found")
