package translator

import (
	"context"
	"errors"
	"testing"

	"ingredient-engine/internal/core/ai/provider"
	"ingredient-engine/internal/core/ai/provider/mocks"
	"ingredient-engine/internal/core/ingredient"
	"ingredient-engine/internal/core/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func reply(content string) *provider.Response {
	return &provider.Response{Content: content, Model: "test/model"}
}

func setup(t *testing.T) (*Service, *mocks.MockCompleter, *metrics.Metrics) {
	t.Helper()
	ctrl := gomock.NewController(t)
	completer := mocks.NewMockCompleter(ctrl)
	m := metrics.New(nil)
	return NewService(completer, m), completer, m
}

func TestService_Translate(t *testing.T) {
	svc, completer, m := setup(t)

	completer.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *provider.Request) (*provider.Response, error) {
			require.Len(t, req.Messages, 2)
			assert.Equal(t, provider.RoleSystem, req.Messages[0].Role)
			assert.Contains(t, req.Messages[1].Content, `"Thịt Ba Chỉ"`)
			return reply(`{"is_food":true,"specific":"pork belly","general":"pork","category":"meat"}`), nil
		})

	got, err := svc.Translate(context.Background(), "Thịt Ba Chỉ")
	require.NoError(t, err)
	assert.Equal(t, ingredient.Translation{Specific: "pork belly", General: "pork", Category: ingredient.CategoryMeat}, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AICallsTotal.WithLabelValues(OperationTranslate, metrics.StatusSuccess)))
}

func TestService_Translate_LocalValidationSkipsModel(t *testing.T) {
	svc, completer, _ := setup(t)
	completer.EXPECT().Generate(gomock.Any(), gomock.Any()).Times(0)

	for _, input := range []string{"", "x", "12345", "test", "aaaaa"} {
		_, err := svc.Translate(context.Background(), input)
		assert.True(t, errors.Is(err, ingredient.ErrInvalidIngredient), input)
	}
}

func TestService_Translate_Rejected(t *testing.T) {
	svc, completer, _ := setup(t)
	completer.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return(reply(`{"is_food":false,"reason":"a household object"}`), nil)

	_, err := svc.Translate(context.Background(), "cái bàn")
	require.Error(t, err)

	var invalid *ingredient.InvalidIngredientError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "cái bàn", invalid.Text)
	assert.Equal(t, "a household object", invalid.Reason)
}

func TestService_Translate_RepromptsWithReason(t *testing.T) {
	svc, completer, _ := setup(t)

	gomock.InOrder(
		completer.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(reply("Sorry, here is the answer: pork belly"), nil),
		completer.EXPECT().Generate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req *provider.Request) (*provider.Response, error) {
				assert.Contains(t, req.Messages[1].Content, "previous reply could not be used")
				return reply(`{"is_food":true,"specific":"pork belly","general":"pork","category":"meat"}`), nil
			}),
	)

	got, err := svc.Translate(context.Background(), "ba chỉ")
	require.NoError(t, err)
	assert.Equal(t, "pork belly", got.Specific)
}

func TestService_Translate_MalformedAfterAllAttempts(t *testing.T) {
	svc, completer, _ := setup(t)
	completer.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return(reply("no json here"), nil).
		Times(defaultMaxAttempts)

	_, err := svc.Translate(context.Background(), "rau muống")
	assert.True(t, errors.Is(err, ingredient.ErrInvalidIngredient))
	assert.False(t, ingredient.IsRetryable(err))
}

func TestService_Translate_ServiceFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "plain error", err: errors.New("connection reset")},
		{name: "timeout", err: context.DeadlineExceeded},
		{name: "already classified", err: ingredient.ErrTranslationService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, completer, m := setup(t)
			completer.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			_, err := svc.Translate(context.Background(), "hành lá")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ingredient.ErrTranslationService))
			assert.True(t, errors.Is(err, tt.err))
			assert.True(t, ingredient.IsRetryable(err))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.AICallsTotal.WithLabelValues(OperationTranslate, metrics.StatusError)))
		})
	}
}

func TestService_EstimateNutrition(t *testing.T) {
	svc, completer, _ := setup(t)
	completer.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return(reply(`{"calories":518,"protein":9.3,"carbs":0,"fat":53,"fiber":0}`), nil)

	got := svc.EstimateNutrition(context.Background(), "pork belly")
	assert.Equal(t, ingredient.Nutrition{Calories: 518, Protein: 9.3, Fat: 53}, got)
}

func TestService_EstimateNutrition_FailureIsZero(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		svc, completer, _ := setup(t)
		completer.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))
		assert.True(t, svc.EstimateNutrition(context.Background(), "pork belly").IsZero())
	})

	t.Run("unparseable output", func(t *testing.T) {
		svc, completer, _ := setup(t)
		completer.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(reply("I don't know"), nil).
			Times(defaultMaxAttempts)
		assert.True(t, svc.EstimateNutrition(context.Background(), "mystery").IsZero())
	})
}

func TestNewService_Options(t *testing.T) {
	svc := NewService(nil, nil, WithMaxAttempts(5), WithMaxTokens(64), WithTemperature(0), WithMaxAttempts(-1))
	assert.Equal(t, 5, svc.maxAttempts)
	assert.Equal(t, 64, svc.maxTokens)
	assert.Equal(t, 0.0, svc.temperature)
}
