package bot

import (
	"fmt"

	"obot/internal/config"
)

// FromConfig registers one bot built from a [[bot]] table.
func FromConfig(reg *Registry, cfg config.Bot) (*Bot, error) {
	b := reg.Create()
	b.Host = cfg.Host
	b.Port = cfg.Port
	b.Secure = cfg.SSL
	b.SkipVerify = cfg.TLSSkipVerify
	b.User = cfg.User
	b.RealName = cfg.Name
	b.Pass = cfg.Pass
	b.NickServPass = cfg.NickServPass
	b.Modes = cfg.Modes
	b.AdminHash = cfg.AdminHash
	b.ReconnectOnDrop = cfg.ReconnectOnDrop

	b.SetNick(cfg.Nick)
	b.SetDesiredNick(cfg.Nick)
	b.AddAdmins(cfg.Admins...)

	if len(SplitChannels(cfg.Channels)) > 0 {
		if err := reg.AddChannel(b, cfg.Channels); err != nil {
			reg.Destroy(b)
			return nil, fmt.Errorf("bot %s: %w", cfg.Nick, err)
		}
	}
	return b, nil
}
