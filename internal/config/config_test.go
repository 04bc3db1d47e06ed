package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) SetupTest() {
	// окружение раннера не должно влиять на тесты.
	for _, key := range []string{
		"RUN_ADDRESS", "LOG_LEVEL", "STORAGE_DRIVER", "DATABASE_URI", "MIGRATIONS_DIR", "MONGO_URI", "MONGO_DATABASE",
		"MONGO_TRANSACTIONS", "JWT_SECRET", "ADMIN_LOGINS", "BCRYPT_COST", "CHECKOUT_LEASE",
		"RECONCILE_INTERVAL", "RECONCILE_WORKERS", "AUTO_REFUND",
	} {
		s.T().Setenv(key, "")
	}
}

func (s *ConfigTestSuite) TestLoad_FlagDefaults() {
	conf, err := Load([]string{"-d", "postgres://localhost/shop", "-j", "secret"})
	s.Require().NoError(err)

	s.Equal("localhost:8080", conf.RunAddress)
	s.Equal(DriverPostgres, conf.StorageDriver)
	s.Equal("postgres://localhost/shop", conf.DatabaseDSN)
	s.Equal(time.Minute, conf.CheckoutLease)
	s.Equal(uint(4), conf.ReconcileWorkers)
	s.True(conf.AutoRefund)
	s.True(conf.MongoTransactions)
}

func (s *ConfigTestSuite) TestLoad_EnvOverridesFlags() {
	s.T().Setenv("RUN_ADDRESS", ":9090")
	s.T().Setenv("STORAGE_DRIVER", DriverMemory)
	s.T().Setenv("JWT_SECRET", "env-secret")
	s.T().Setenv("ADMIN_LOGINS", "root,ops")
	s.T().Setenv("AUTO_REFUND", "false")
	s.T().Setenv("RECONCILE_INTERVAL", "15s")

	conf, err := Load([]string{"-a", ":8080", "-j", "flag-secret"})
	s.Require().NoError(err)

	s.Equal(":9090", conf.RunAddress)
	s.Equal(DriverMemory, conf.StorageDriver)
	s.Equal("env-secret", conf.JWTSecret)
	s.Equal([]string{"root", "ops"}, conf.AdminLogins)
	s.False(conf.AutoRefund)
	s.Equal(15*time.Second, conf.ReconcileInterval)
}

func (s *ConfigTestSuite) TestLoad_Validation() {
	cases := []struct {
		name string
		args []string
	}{
		{name: "postgres without dsn", args: []string{"-j", "secret"}},
		{name: "mongo without uri", args: []string{"-s", DriverMongo, "-j", "secret"}},
		{name: "unknown driver", args: []string{"-s", "redis", "-j", "secret"}},
		{name: "no jwt secret", args: []string{"-s", DriverMemory}},
		{name: "bad flag", args: []string{"-unknown"}},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			_, err := Load(t.args)
			s.Error(err)
		})
	}
}
