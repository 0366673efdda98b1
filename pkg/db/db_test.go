package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/storefront/pkg/db"
	"github.com/wyfcoding/storefront/pkg/db/dbtest"
)

type widget struct {
	ID   uint
	Name string
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	d := dbtest.Open(t, &widget{})
	ctx := context.Background()

	require.NoError(t, d.WithTx(ctx, func(txCtx context.Context) error {
		return d.Conn(txCtx).Create(&widget{Name: "kept"}).Error
	}))

	boom := errors.New("boom")
	err := d.WithTx(ctx, func(txCtx context.Context) error {
		if err := d.Conn(txCtx).Create(&widget{Name: "dropped"}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var names []string
	require.NoError(t, d.Conn(ctx).Model(&widget{}).Pluck("name", &names).Error)
	assert.Equal(t, []string{"kept"}, names)
}

func TestWithTxReusesOuterTransaction(t *testing.T) {
	d := dbtest.Open(t, &widget{})
	ctx := context.Background()

	err := d.WithTx(ctx, func(outer context.Context) error {
		if err := d.Conn(outer).Create(&widget{Name: "outer"}).Error; err != nil {
			return err
		}
		return d.WithTx(outer, func(inner context.Context) error {
			assert.Same(t, d.Conn(outer), d.Conn(inner))
			return errors.New("inner failed")
		})
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, d.Conn(ctx).Model(&widget{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIsNotFound(t *testing.T) {
	d := dbtest.Open(t, &widget{})
	var w widget
	err := d.Conn(context.Background()).First(&w, 42).Error
	assert.True(t, db.IsNotFound(err))
}
