// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"sync"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "touch_only", want: ModeTouchOnly},
		{input: "pin_required", want: ModePinRequired},
		{input: "preferred", want: ModePreferred},
		{input: "", wantErr: true},
		{input: "PIN_REQUIRED", wantErr: true},
		{input: "retina_scan", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidMode)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMode_Requirement(t *testing.T) {
	assert.Equal(t, protocol.VerificationDiscouraged, ModeTouchOnly.Requirement())
	assert.Equal(t, protocol.VerificationRequired, ModePinRequired.Requirement())
	assert.Equal(t, protocol.VerificationPreferred, ModePreferred.Requirement())
}

func TestModeSelector_SetAndGet(t *testing.T) {
	sel := NewModeSelector("")
	assert.Equal(t, ModePreferred, sel.Mode())

	require.NoError(t, sel.SetMode(ModeTouchOnly))
	assert.Equal(t, ModeTouchOnly, sel.Mode())

	err := sel.SetMode(Mode("bogus"))
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, ModeTouchOnly, sel.Mode(), "failed set must not change the mode")
}

func TestModeSelector_Lock(t *testing.T) {
	sel := NewModeSelector(ModePinRequired)
	assert.False(t, sel.Locked())

	sel.Lock()
	assert.True(t, sel.Locked())

	err := sel.SetMode(ModePreferred)
	assert.ErrorIs(t, err, ErrPolicyLocked)
	assert.Equal(t, ModePinRequired, sel.Mode())

	// Locking twice is harmless.
	sel.Lock()
	assert.True(t, sel.Locked())
}

func TestModeSelector_ConcurrentAccess(t *testing.T) {
	sel := NewModeSelector(ModePreferred)
	modes := []Mode{ModeTouchOnly, ModePinRequired, ModePreferred}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = sel.SetMode(modes[i%len(modes)])
			_ = sel.Mode()
		}(i)
	}
	wg.Wait()

	// Whatever won, the selector holds a valid mode.
	_, err := ParseMode(string(sel.Mode()))
	assert.NoError(t, err)
}
