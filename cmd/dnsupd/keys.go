package main

import (
	"context"
	"log/slog"
	"os"

	"gitlab.bluewillows.net/root/dnsupd/internal/config"
	"gitlab.bluewillows.net/root/dnsupd/pkg/sshutil"
	"gitlab.bluewillows.net/root/dnsupd/pkg/tsigkey"
)

// remoteKeyReader reads ssh:// key files over SFTP. The user and port of
// the reference win over the ssh section of the configuration, which in
// turn wins over $USER.
func remoteKeyReader(cfg config.SSHConfig, logger *slog.Logger) tsigkey.RemoteReadFunc {
	return func(ctx context.Context, loc tsigkey.RemoteLocation) ([]byte, error) {
		return sshutil.ReadRemoteFile(ctx, sshConfigFor(cfg, loc), loc.Path, logger)
	}
}

func sshConfigFor(cfg config.SSHConfig, loc tsigkey.RemoteLocation) *sshutil.Config {
	sc := &sshutil.Config{
		Host:                  loc.Host,
		Port:                  cfg.Port,
		User:                  cfg.User,
		KeyFile:               cfg.KeyFile,
		Password:              cfg.Password,
		KnownHosts:            cfg.KnownHosts,
		InsecureIgnoreHostKey: cfg.InsecureIgnoreHostKey,
		Timeout:               cfg.Timeout,
	}
	if loc.User != "" {
		sc.User = loc.User
	}
	if loc.Port > 0 {
		sc.Port = loc.Port
	}
	if sc.User == "" {
		sc.User = os.Getenv("USER")
	}
	if sc.Port == 0 {
		sc.Port = sshutil.DefaultSSHPort
	}
	return sc
}

// newKeyLoader returns the TSIG key loader for this invocation.
func newKeyLoader(cfg *config.Config, logger *slog.Logger) *tsigkey.Loader {
	return tsigkey.NewLoader(
		tsigkey.WithLogger(logger),
		tsigkey.WithRemoteReader(remoteKeyReader(cfg.SSH, logger)),
	)
}
