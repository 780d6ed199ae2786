package account

import (
	"os/user"
	"strconv"
	"testing"

	"github.com/gridmon/rsv-probe/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemLookup_CurrentUser(t *testing.T) {
	me, err := user.Current()
	require.NoError(t, err)

	acct, err := System{}.Lookup(me.Username)
	require.NoError(t, err)

	assert.Equal(t, me.Username, acct.Name)
	assert.Equal(t, me.Uid, strconv.Itoa(acct.UID))
	assert.Equal(t, me.Gid, strconv.Itoa(acct.GID))
}

func TestSystemLookup_UnknownUser(t *testing.T) {
	_, err := System{}.Lookup("no-such-rsv-user-xyz123")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCredential))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestSystemSwitch_SameUserIsNoop(t *testing.T) {
	me, err := user.Current()
	require.NoError(t, err)

	acct, err := System{}.Lookup(me.Username)
	require.NoError(t, err)

	assert.NoError(t, System{}.Switch(acct))
}
