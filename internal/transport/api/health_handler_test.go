package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type HealthHandlerTestSuite struct {
	routerSuite
}

func TestHealthHandlerSuite(t *testing.T) {
	suite.Run(t, new(HealthHandlerTestSuite))
}

func (s *HealthHandlerTestSuite) TestIndex() {
	s.mockHealthChecker.EXPECT().Ping(gomock.Any()).Return(nil)
	s.mockHealthChecker.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))

	s.Equal(http.StatusOK, s.status(http.MethodGet, HealthRoute, nil, ""))
	s.Equal(http.StatusServiceUnavailable, s.status(http.MethodGet, HealthRoute, nil, ""))
}
