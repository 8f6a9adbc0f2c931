package nats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_UnreachableServer(t *testing.T) {
	c, err := New(context.Background(), "nats://127.0.0.1:1")

	assert.Error(t, err)
	assert.Nil(t, c)
}
