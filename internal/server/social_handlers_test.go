package server

import (
	"context"
	"net/http"
	"testing"

	"pipal/internal/models"
	"pipal/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicRoutesNeedNoToken(t *testing.T) {
	env := newTestEnv(t, "")
	seller := env.user(models.RoleSeller, "correct-horse")
	post := env.post(seller)

	public := []string{
		"/api/posts",
		"/api/posts/" + post.ID.String(),
		"/api/products",
		"/api/live",
		"/api/votes/" + post.ID.String(),
		"/api/votes/" + post.ID.String() + "/tally",
		"/api/users/" + seller.ID.String(),
		"/api/users/" + seller.ID.String() + "/followers",
		"/api/users/" + seller.ID.String() + "/following",
	}
	for _, path := range public {
		resp, body := env.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, "%s: %s", path, body)
	}

	resp, body := env.do(http.MethodPost, "/api/auth/login", nil,
		fiber.Map{"email": seller.Email, "password": "correct-horse"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	// Writes still require a token.
	for _, path := range []string{"/api/posts", "/api/posts/" + post.ID.String() + "/like", "/api/users/" + seller.ID.String() + "/follow"} {
		resp, _ := env.do(http.MethodPost, path, nil, fiber.Map{})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.do(http.MethodPost, "/api/auth/register", nil, fiber.Map{
		"email":     "new.seller@example.com",
		"username":  "new_seller",
		"password":  "secret1",
		"firstName": "Rosa",
		"role":      "seller",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	reg := decode[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](t, body)
	require.NotEmpty(t, reg.Token)
	assert.Equal(t, models.RoleSeller, reg.User.Role)
	assert.Equal(t, "Rosa", reg.User.FirstName)
	assert.NotContains(t, string(body), "password")

	env.tokens[reg.User.ID] = reg.Token
	resp, body = env.do(http.MethodGet, "/api/auth/me", &reg.User, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, reg.User.ID, decode[models.User](t, body).ID)

	resp, body = env.do(http.MethodPost, "/api/auth/register", nil, fiber.Map{
		"email": "NEW.SELLER@example.com", "username": "someone_else", "password": "secret1",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode, string(body))
	assert.Equal(t, models.CodeConflict, decode[models.ErrorResponse](t, body).Code)

	resp, body = env.do(http.MethodPost, "/api/auth/register", nil, fiber.Map{
		"email": "third@example.com", "username": "x", "password": "secret1",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, body).Code)

	resp, _ = env.do(http.MethodPost, "/api/auth/register", nil, fiber.Map{
		"email": "fourth@example.com", "username": "wants_admin", "password": "secret1", "role": "admin",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLikeEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	seller := env.user(models.RoleSeller, "")
	buyer := env.user(models.RoleBuyer, "")
	post := env.post(seller)
	path := "/api/posts/" + post.ID.String() + "/like"

	resp, body := env.do(http.MethodPost, path, buyer, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"liked":true,"likesCount":1}`, string(body))

	resp, body = env.do(http.MethodPost, path, seller, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"liked":true,"likesCount":2}`, string(body))

	resp, body = env.do(http.MethodPost, path, buyer, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"liked":false,"likesCount":1}`, string(body))

	resp, body = env.do(http.MethodGet, "/api/posts/"+post.ID.String(), nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[models.Post](t, body).LikesCount)

	resp, _ = env.do(http.MethodPost, "/api/posts/"+uuid.NewString()+"/like", buyer, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(http.MethodPost, "/api/posts/not-a-uuid/like", buyer, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestFollowAndProfileEndpoints(t *testing.T) {
	env := newTestEnv(t, "")
	seller := env.user(models.RoleSeller, "")
	fan := env.user(models.RoleBuyer, "")
	sellerPath := "/api/users/" + seller.ID.String()

	resp, body := env.do(http.MethodPost, sellerPath+"/follow", fan, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"following":true,"followersCount":1}`, string(body))

	resp, body = env.do(http.MethodGet, sellerPath, nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	profile := decode[map[string]any](t, body)
	assert.Equal(t, seller.Username, profile["username"])
	assert.EqualValues(t, 1, profile["followers_count"])
	assert.NotContains(t, profile, "email")

	resp, body = env.do(http.MethodGet, sellerPath+"/followers", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	followers := decode[[]models.FollowUser](t, body)
	require.Len(t, followers, 1)
	assert.Equal(t, fan.ID, followers[0].ID)

	resp, body = env.do(http.MethodGet, "/api/users/"+fan.ID.String()+"/following", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	following := decode[[]models.FollowUser](t, body)
	require.Len(t, following, 1)
	assert.Equal(t, seller.ID, following[0].ID)

	resp, body = env.do(http.MethodPost, sellerPath+"/follow", fan, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"following":false,"followersCount":0}`, string(body))

	resp, body = env.do(http.MethodPost, sellerPath+"/follow", seller, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, body).Code)

	require.NoError(t, env.db.Model(seller).Update("is_active", false).Error)
	resp, _ = env.do(http.MethodGet, sellerPath, nil, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(http.MethodPost, sellerPath+"/follow", fan, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestProductListingEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	seller := env.user(models.RoleSeller, "")
	products := repository.NewProductRepository(env.db)
	for _, p := range []*models.Product{
		{SellerID: seller.ID, Title: "Linen shirt", SKU: "LIN-1", Price: 40, IsActive: true},
		{SellerID: seller.ID, Title: "Linen trousers", SKU: "LIN-2", Price: 65, IsActive: true},
		{SellerID: seller.ID, Title: "Wool coat", SKU: "WOL-1", Price: 180, IsActive: true},
	} {
		require.NoError(t, products.Create(context.Background(), p))
	}

	resp, body := env.do(http.MethodGet, "/api/products?search=linen&sortBy=price_high", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	listed := decode[[]models.Product](t, body)
	require.Len(t, listed, 2)
	assert.Equal(t, "Linen trousers", listed[0].Title)
	assert.Equal(t, "Linen shirt", listed[1].Title)

	resp, body = env.do(http.MethodGet, "/api/products?minPrice=50&maxPrice=200&sortBy=price_low&limit=1", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	listed = decode[[]models.Product](t, body)
	require.Len(t, listed, 1)
	assert.Equal(t, "Linen trousers", listed[0].Title)

	resp, body = env.do(http.MethodGet, "/api/products?sellerId="+seller.ID.String(), nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Product](t, body), 3)

	resp, _ = env.do(http.MethodGet, "/api/products?minPrice=cheap", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(http.MethodGet, "/api/products?minPrice=90&maxPrice=10", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(http.MethodGet, "/api/products?sellerId=nope", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
