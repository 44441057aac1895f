package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/DachengChen/asksql/config"
)

var profileFlags struct {
	conn config.Connection
	use  bool
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the database profiles used by :run and :explain",
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a connection profile in ~/.asksql/connections.json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		conn := profileFlags.conn
		conn.Name = args[0]
		conn.SSH.Enabled = conn.SSH.Host != ""
		if err := addProfile(dir, conn, profileFlags.use); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved profile %s\n", conn.Name)
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Select the profile generated SQL runs against",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		if err := useProfile(dir, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "using profile %s\n", args[0])
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		return listProfiles(dir, cmd.OutOrStdout())
	},
}

func init() {
	f := profileAddCmd.Flags()
	f.StringVar(&profileFlags.conn.Host, "host", "localhost", "database host")
	f.StringVar(&profileFlags.conn.Port, "port", "5432", "database port")
	f.StringVar(&profileFlags.conn.User, "user", "postgres", "database user")
	f.StringVar(&profileFlags.conn.Password, "password", "", "database password (or set "+config.EnvDBPassword+" at run time)")
	f.StringVar(&profileFlags.conn.Database, "dbname", "postgres", "database name")
	f.StringVar(&profileFlags.conn.SSLMode, "sslmode", "disable", "sslmode passed to pgx")
	f.StringVar(&profileFlags.conn.SSH.Host, "ssh-host", "", "SSH bastion host; enables the tunnel")
	f.StringVar(&profileFlags.conn.SSH.Port, "ssh-port", "22", "SSH port")
	f.StringVar(&profileFlags.conn.SSH.User, "ssh-user", "", "SSH user")
	f.StringVar(&profileFlags.conn.SSH.KeyPath, "ssh-key", "", "SSH private key path")
	f.BoolVar(&profileFlags.use, "use", false, "also select the profile")

	profileCmd.AddCommand(profileAddCmd, profileUseCmd, profileListCmd)
	rootCmd.AddCommand(profileCmd)
}

// addProfile validates conn and saves it under dir, selecting it when use
// is set.
func addProfile(dir string, conn config.Connection, use bool) error {
	if _, err := conn.ToConfig(); err != nil {
		return err
	}
	store, err := config.NewConnectionStore(dir)
	if err != nil {
		return fmt.Errorf("load connections: %w", err)
	}
	store.Add(conn)
	if err := store.Save(); err != nil {
		return fmt.Errorf("save connections: %w", err)
	}
	if !use {
		return nil
	}
	return useProfile(dir, conn.Name)
}

// useProfile records name as database.profile in config.json. Environment
// overrides are not written back.
func useProfile(dir, name string) error {
	store, err := config.NewConnectionStore(dir)
	if err != nil {
		return fmt.Errorf("load connections: %w", err)
	}
	if _, ok := store.Get(name); !ok {
		return fmt.Errorf("connection profile %q not found", name)
	}
	cfg, err := config.ReadAppConfig(dir)
	if err != nil {
		return err
	}
	cfg.Database.Profile = name
	return config.SaveAppConfig(dir, cfg)
}

func listProfiles(dir string, out io.Writer) error {
	store, err := config.NewConnectionStore(dir)
	if err != nil {
		return fmt.Errorf("load connections: %w", err)
	}
	cfg, err := config.ReadAppConfig(dir)
	if err != nil {
		return err
	}
	if len(store.Connections) == 0 {
		fmt.Fprintln(out, "no profiles; add one with 'asksql profile add <name>'")
		return nil
	}
	for _, c := range store.Connections {
		mark := " "
		if c.Name == cfg.Database.Profile {
			mark = "*"
		}
		line := fmt.Sprintf("%s %s  %s@%s:%s/%s", mark, c.Name, c.User, c.Host, c.Port, c.Database)
		if c.SSH.Enabled {
			line += " via " + c.SSH.Host
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
