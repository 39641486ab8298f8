package main

import (
	"github.com/utafrali/storefront/internal/domain"
)

func init() {
	register("login", command{summary: "sign in with username and password", run: (*cli).login})
	register("login-code", command{summary: "sign in with an emailed code", run: (*cli).loginCode})
	register("register", command{summary: "create an account and mail a verification code", run: (*cli).register})
	register("resend", command{summary: "mail the registration code again", run: (*cli).resend})
	register("verify", command{summary: "confirm a registration code and sign in", run: (*cli).verify})
	register("reset-password", command{summary: "mail a reset code, or reset with -code", run: (*cli).resetPassword})
	register("logout", command{summary: "forget the stored session", run: (*cli).logout})
	register("me", command{summary: "show the signed-in user", auth: true, run: (*cli).me})
	register("profile", command{summary: "update the signed-in user", auth: true, run: (*cli).profile})
	register("passwd", command{summary: "change the password", auth: true, run: (*cli).passwd})
}

func (c *cli) login(args []string) error {
	fs := c.flags("login", "-username NAME -password PASS")
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "account password")
	var required []string
	if !c.cfg.Mode.IsMock() {
		required = []string{"username", "password"}
	}
	if err := parse(fs, args, required...); err != nil {
		return err
	}

	if err := c.app.Session.Login(c.ctx, *username, *password); err != nil {
		return err
	}
	c.signedIn()
	return nil
}

func (c *cli) signedIn() {
	if u := c.app.Session.User(); u != nil {
		c.say(u, "signed in as %s", u.Username)
		return
	}
	c.say(nil, "signed in")
}

func (c *cli) loginCode(args []string) error {
	fs := c.flags("login-code", "-email ADDR [-code CODE]")
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "six digit code; omit to have one mailed")
	if err := parse(fs, args, "email"); err != nil {
		return err
	}

	if *code == "" {
		msg, err := c.app.Session.SendLoginCode(c.ctx, *email)
		if err != nil {
			return err
		}
		c.say(nil, "%s", msg)
		return nil
	}
	if err := c.app.Session.LoginWithCode(c.ctx, *email, *code); err != nil {
		return err
	}
	c.signedIn()
	return nil
}

// registerInput parses the flags register and resend share.
func (c *cli) registerInput(name string, args []string) (domain.RegisterInput, error) {
	fs := c.flags(name, "-username NAME -email ADDR -password PASS")
	var in domain.RegisterInput
	fs.StringVar(&in.Username, "username", "", "new username")
	fs.StringVar(&in.Email, "email", "", "email to verify")
	fs.StringVar(&in.Password, "password", "", "password, at least six characters")
	err := parse(fs, args, "username", "email", "password")
	return in, err
}

func (c *cli) register(args []string) error {
	in, err := c.registerInput("register", args)
	if err != nil {
		return err
	}
	if err := c.app.Session.Register(c.ctx, in); err != nil {
		return err
	}
	c.say(nil, "verification code sent to %s, run `storefront verify` with it", in.Email)
	return nil
}

func (c *cli) resend(args []string) error {
	in, err := c.registerInput("resend", args)
	if err != nil {
		return err
	}
	if err := c.app.Session.ResendVerification(c.ctx, in); err != nil {
		return err
	}
	c.say(nil, "verification code sent to %s", in.Email)
	return nil
}

func (c *cli) verify(args []string) error {
	fs := c.flags("verify", "-email ADDR -code CODE")
	email := fs.String("email", "", "registered email")
	code := fs.String("code", "", "six digit code")
	if err := parse(fs, args, "email", "code"); err != nil {
		return err
	}

	if err := c.app.Session.VerifyRegistration(c.ctx, *email, *code); err != nil {
		return err
	}
	c.signedIn()
	return nil
}

func (c *cli) resetPassword(args []string) error {
	fs := c.flags("reset-password", "-email ADDR [-code CODE -password PASS]")
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "six digit reset code; omit to have one mailed")
	password := fs.String("password", "", "new password")
	if err := parse(fs, args, "email"); err != nil {
		return err
	}

	if *code == "" {
		msg, err := c.app.Session.RequestPasswordReset(c.ctx, *email)
		if err != nil {
			return err
		}
		c.say(nil, "%s", msg)
		return nil
	}
	if err := c.app.Session.ResetPassword(c.ctx, *email, *code, *password); err != nil {
		return err
	}
	c.say(nil, "password reset, sign in with the new password")
	return nil
}

func (c *cli) logout(args []string) error {
	if err := parse(c.flags("logout", ""), args); err != nil {
		return err
	}
	c.app.Session.Logout(c.ctx)
	c.say(nil, "signed out")
	return nil
}

func (c *cli) me(args []string) error {
	if err := parse(c.flags("me", ""), args); err != nil {
		return err
	}
	c.app.Session.FetchProfile(c.ctx)
	u := c.app.Session.User()
	if u == nil {
		c.say(nil, "profile unavailable")
		return nil
	}
	return c.table(u, "ID\tUSERNAME\tEMAIL\tROLE\tJOINED", [][]string{{
		id(u.ID), u.Username, u.Email, u.Role, u.DateJoined.Format("2006-01-02"),
	}})
}

func (c *cli) profile(args []string) error {
	fs := c.flags("profile", "-username NAME")
	username := fs.String("username", "", "new username")
	if err := parse(fs, args, "username"); err != nil {
		return err
	}

	u, err := c.app.Session.UpdateProfile(c.ctx, domain.ProfileUpdate{Username: username})
	if err != nil {
		return err
	}
	c.say(u, "profile updated, username is now %s", u.Username)
	return nil
}

func (c *cli) passwd(args []string) error {
	fs := c.flags("passwd", "-old PASS -new PASS")
	oldPassword := fs.String("old", "", "current password")
	newPassword := fs.String("new", "", "new password")
	if err := parse(fs, args, "old", "new"); err != nil {
		return err
	}

	if err := c.app.Session.ChangePassword(c.ctx, *oldPassword, *newPassword); err != nil {
		return err
	}
	c.say(nil, "password changed")
	return nil
}
