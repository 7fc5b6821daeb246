package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/checked/utils"
)

func TestPasswordResetWithDebugCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sms := &mockSMS{}
	sms.On("Configured").Return(false)
	svc := NewPasswordResetService(env.db, env.otps, env.players, sms, env.logger)

	p := env.player(t, "chebet", 1500)

	t.Run("unknown phone gets the generic answer", func(t *testing.T) {
		out, err := svc.RequestReset(ctx, "0700999999")
		require.NoError(t, err)
		assert.Equal(t, resetRequestedMessage, out.Message)
		assert.Empty(t, out.DebugOTP)
	})

	out, err := svc.RequestReset(ctx, p.Phone)
	require.NoError(t, err)
	require.Len(t, out.DebugOTP, 6)
	assert.Equal(t, otpExpiryMinutes, out.ExpiresInMinutes)

	_, err = svc.RequestReset(ctx, p.Phone)
	assert.ErrorIs(t, err, ErrTooManyRequests)
	assert.True(t, strings.HasPrefix(err.Error(), "Please wait"))

	wrong := "000000"
	if out.DebugOTP == wrong {
		wrong = "111111"
	}
	err = svc.ResetPassword(ctx, p.Phone, wrong, "newpass1")
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.EqualError(t, err, "Invalid OTP. 2 attempts remaining.")

	err = svc.ResetPassword(ctx, p.Phone, out.DebugOTP, "short")
	assert.ErrorIs(t, err, ErrValidationFailed)

	require.NoError(t, svc.ResetPassword(ctx, p.Phone, out.DebugOTP, "newpass1"))
	updated, err := env.players.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, utils.CheckPasswordHash("newpass1", updated.PasswordHash))

	err = svc.ResetPassword(ctx, p.Phone, out.DebugOTP, "another1")
	assert.EqualError(t, err, "Invalid or expired OTP. Please request a new one.")
}

func TestPasswordResetSendsSMS(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.player(t, "kiprono", 1500)

	sms := &mockSMS{}
	sms.On("Configured").Return(true)
	sms.On("Send", mock.Anything, p.Phone, mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "ChessKenya")
	})).Return(nil).Once()
	svc := NewPasswordResetService(env.db, env.otps, env.players, sms, env.logger)

	out, err := svc.RequestReset(ctx, p.Phone)
	require.NoError(t, err)
	assert.Empty(t, out.DebugOTP)
	sms.AssertExpectations(t)
}
