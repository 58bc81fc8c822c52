package consumer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermanentErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("malformed payload")
	perm := &PermanentError{Cause: cause}

	assert.Equal(t, "permanent: malformed payload", perm.Error())
	assert.ErrorIs(t, perm, cause)
}
