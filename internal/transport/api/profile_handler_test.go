package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/service"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ProfileHandlerTestSuite struct {
	routerSuite
	userID string
	jwt    string
}

func TestProfileHandlerSuite(t *testing.T) {
	suite.Run(t, new(ProfileHandlerTestSuite))
}

func (s *ProfileHandlerTestSuite) SetupTest() {
	s.routerSuite.SetupTest()
	s.userID = gofakeit.UUID()
	s.jwt = s.token(s.userID, domain.RoleUser)
}

func (s *ProfileHandlerTestSuite) TestShow() {
	s.mockUserService.EXPECT().Get(gomock.Any(), s.userID).Return(&domain.User{
		ID:        s.userID,
		Username:  "ann",
		Name:      "Ann",
		Role:      domain.RoleUser,
		Balance:   decimal.RequireFromString("12.5"),
		CreatedAt: time.Now(),
	}, nil)

	var body ProfileResponse
	s.Equal(http.StatusOK, s.requestJSON(http.MethodGet, ProfileRoute, nil, s.jwt, &body))
	s.Equal(s.userID, body.ID)
	s.Equal("Ann", body.Name)
	s.Equal("12.50", body.Balance)

	s.Equal(http.StatusUnauthorized, s.status(http.MethodGet, ProfileRoute, nil, ""))
}

func (s *ProfileHandlerTestSuite) TestShow_DeletedUser() {
	s.mockUserService.EXPECT().Get(gomock.Any(), s.userID).Return(nil, domain.ErrRecordNotFound)

	s.Equal(http.StatusNotFound, s.status(http.MethodGet, ProfileRoute, nil, s.jwt))
}

func (s *ProfileHandlerTestSuite) TestUpdate() {
	avatar := "https://cdn.example.com/ann.png"
	s.mockUserService.EXPECT().UpdateProfile(gomock.Any(), service.UpdateProfileArgs{
		UserID: s.userID,
		Avatar: &avatar,
	}).Return(&domain.User{ID: s.userID, Username: "ann", Avatar: avatar}, nil)
	s.mockUserService.EXPECT().UpdateProfile(gomock.Any(), service.UpdateProfileArgs{UserID: s.userID}).
		Return(nil, domain.NewValidationError("body", "nothing to update"))

	var body ProfileResponse
	s.Equal(http.StatusOK, s.requestJSON(http.MethodPut, ProfileRoute,
		map[string]any{"avatar": avatar}, s.jwt, &body))
	s.Equal(avatar, body.Avatar)

	s.Equal(http.StatusUnprocessableEntity, s.status(http.MethodPut, ProfileRoute, map[string]any{}, s.jwt))
	s.Equal(http.StatusUnprocessableEntity, s.status(http.MethodPut, ProfileRoute,
		map[string]any{"name": "A"}, s.jwt))
	s.Equal(http.StatusUnprocessableEntity, s.status(http.MethodPut, ProfileRoute,
		map[string]any{"avatar": "ann.png"}, s.jwt))
}
