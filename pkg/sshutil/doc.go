// Package sshutil provides read-only SSH/SFTP file access.
//
// It is used to fetch TSIG key files referenced as
// ssh://user@host/path/to/file:keyname without copying them to the
// local machine first.
//
// # Basic Usage
//
//	config := &sshutil.Config{
//		Host:    "ns1.example.com",
//		User:    "admin",
//		KeyFile: "~/.ssh/id_ed25519",
//	}
//
//	data, err := sshutil.ReadRemoteFile(ctx, config, "/etc/bind/ddns.key", logger)
//	if err != nil {
//		return err
//	}
//
// # Host Keys
//
// Server keys are checked against Config.KnownHosts, or ~/.ssh/known_hosts
// when that exists. Without either, Connect fails with ErrHostKeyUnverified
// unless Config.InsecureIgnoreHostKey is set.
//
// # Authentication
//
// Config.KeyFile and Config.Password are used when set. With neither,
// the default identities under ~/.ssh (id_ed25519, id_ecdsa, id_rsa) are
// offered.
package sshutil
