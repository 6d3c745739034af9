package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("detailed error matches its sentinel", func(t *testing.T) {
		err := InsufficientStock("Cement", "stock", 10, 3)
		assert.True(t, errors.Is(err, ErrInsufficientStock))
		assert.False(t, errors.Is(err, ErrNotFound))
		assert.Equal(t, "Insufficient stock for Cement: requested 10, available 3", err.Error())
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("create order: %w", InvalidTransition("item is pending"))
		assert.True(t, errors.Is(wrapped, ErrInvalidTransition))

		var de *DomainError
		assert.True(t, errors.As(wrapped, &de))
		assert.Equal(t, CodeInvalidTransition, de.Code)
	})

	t.Run("plain errors never match", func(t *testing.T) {
		assert.False(t, errors.Is(errors.New("INSUFFICIENT_STOCK"), ErrInsufficientStock))
	})
}
