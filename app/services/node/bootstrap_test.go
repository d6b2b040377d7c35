package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Coinversable/validana-core/foundation/blockchain/dbadapter"
	"github.com/Coinversable/validana-core/foundation/blockchain/processor"
	"github.com/Coinversable/validana-core/foundation/blockchain/registry"
)

type emptyLoader struct{}

func (emptyLoader) LoadAll() ([]registry.Entry, error) { return nil, nil }

func TestProcessNextRejectsUndecodableBytes(t *testing.T) {
	log := zap.NewNop().Sugar()

	reg, err := registry.New(emptyLoader{})
	require.NoError(t, err)

	proc := processor.New(reg, dbadapter.New("", log), log, []byte("test"), "node-1", 30*time.Second)

	boot := &Bootstrap{
		registry:  reg,
		processor: proc,
		log:       log,
	}

	outcome, err := boot.ProcessNext(context.Background(), []byte("not a valid transaction"), processor.Context{})
	require.NoError(t, err)
	require.Equal(t, processor.OutcomeInvalid, outcome)
}
