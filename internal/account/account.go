// Package account resolves the configured RSV user and switches the process
// to that account before any probe runs.
package account

import (
	"fmt"
	"os"
	"os/user"
	"strconv"

	"github.com/gridmon/rsv-probe/internal/errors"
	"golang.org/x/sys/unix"
)

// Account is a resolved system account.
type Account struct {
	Name    string
	UID     int
	GID     int
	HomeDir string
}

// Resolver looks up accounts and switches the process identity.
type Resolver interface {
	Lookup(name string) (Account, error)
	Switch(acct Account) error
}

// System resolves accounts from the host's user database.
type System struct{}

// Lookup resolves name to a UID/GID pair.
func (System) Lookup(name string) (Account, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return Account{}, errors.WrapWithCode(err, errors.ErrCredential,
			fmt.Sprintf("The '%s' user defined in rsv.conf does not exist", name),
			"Set 'user' in rsv.conf to an existing account")
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Account{}, errors.WrapWithCode(err, errors.ErrCredential,
			fmt.Sprintf("User '%s' has a non-numeric uid '%s'", name, u.Uid), "")
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Account{}, errors.WrapWithCode(err, errors.ErrCredential,
			fmt.Sprintf("User '%s' has a non-numeric gid '%s'", name, u.Gid), "")
	}

	return Account{Name: u.Username, UID: uid, GID: gid, HomeDir: u.HomeDir}, nil
}

// Switch drops privileges to acct. It is a no-op when the process already
// runs as that uid. A non-root process cannot become another user.
func (System) Switch(acct Account) error {
	euid := unix.Geteuid()
	if euid == acct.UID {
		return nil
	}
	if euid != 0 {
		return errors.New(errors.ErrCredential,
			fmt.Sprintf("Running as uid %d but rsv.conf requires user '%s' (uid %d)", euid, acct.Name, acct.UID),
			"Run as root or as the configured RSV user")
	}

	// Group must change before user: after setresuid we no longer can.
	if err := unix.Setgroups([]int{acct.GID}); err != nil {
		return switchErr(acct, err)
	}
	if err := unix.Setresgid(acct.GID, acct.GID, acct.GID); err != nil {
		return switchErr(acct, err)
	}
	if err := unix.Setresuid(acct.UID, acct.UID, acct.UID); err != nil {
		return switchErr(acct, err)
	}

	os.Setenv("USER", acct.Name)
	os.Setenv("LOGNAME", acct.Name)
	if acct.HomeDir != "" {
		os.Setenv("HOME", acct.HomeDir)
	}
	return nil
}

func switchErr(acct Account, err error) error {
	return errors.WrapWithCode(err, errors.ErrCredential,
		fmt.Sprintf("Failed to switch to user '%s'", acct.Name), "")
}
