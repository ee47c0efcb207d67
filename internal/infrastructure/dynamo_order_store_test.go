package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo records requests and answers from canned outputs.
type fakeDynamo struct {
	put       *dynamodb.PutItemInput
	update    *dynamodb.UpdateItemInput
	queries   []*dynamodb.QueryInput
	getOut    *dynamodb.GetItemOutput
	updateErr error
	pages     map[string][]map[string]types.AttributeValue
	scanPages [][]map[string]types.AttributeValue
	scans     int
	scanIn    *dynamodb.ScanInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.put = in
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getOut == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.update = in
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, in)
	key := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	return &dynamodb.QueryOutput{Items: f.pages[key]}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scanIn = in
	out := &dynamodb.ScanOutput{Items: f.scanPages[f.scans]}
	f.scans++
	if f.scans < len(f.scanPages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "cursor"},
		}
	}
	return out, nil
}

func sampleOrder(id string, created time.Time, status model.OrderStatus) *model.Order {
	return &model.Order{
		ID:         id,
		BuyerID:    "buyer-1",
		ProductID:  "prod-polo",
		Product:    model.ProductSnapshot{Title: "Classic Cotton Polo", UnitPrice: 500},
		Quantity:   5,
		UnitPrice:  500,
		TotalPrice: 2500,
		Status:     status,
		History:    []model.OrderEvent{{Status: model.OrderStatusPending, Location: "Online Store", OccurredAt: created}},
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func item(t *testing.T, o *model.Order) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(o)
	require.NoError(t, err)
	return av
}

func stringAttr(t *testing.T, av types.AttributeValue) string {
	t.Helper()
	s, ok := av.(*types.AttributeValueMemberS)
	require.True(t, ok)
	return s.Value
}

func TestDynamoOrderStore_CreateOrderKeys(t *testing.T) {
	fake := &fakeDynamo{}
	store := NewDynamoOrderStore(fake, "orders")
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateOrder(context.Background(), sampleOrder("ord-1", created, model.OrderStatusPending)))

	require.NotNil(t, fake.put)
	assert.Equal(t, "orders", aws.ToString(fake.put.TableName))
	assert.Equal(t, "attribute_not_exists(PK)", aws.ToString(fake.put.ConditionExpression))
	assert.Equal(t, "ORDER#ord-1", stringAttr(t, fake.put.Item["PK"]))
	assert.Equal(t, "METADATA", stringAttr(t, fake.put.Item["SK"]))
	assert.Equal(t, "BUYER#buyer-1", stringAttr(t, fake.put.Item["GSI1PK"]))
	assert.Equal(t, "STATUS#pending", stringAttr(t, fake.put.Item["GSI2PK"]))
	assert.Equal(t, "2024-03-01T10:00:00Z", stringAttr(t, fake.put.Item["GSI2SK"]))
	assert.Equal(t, "ord-1\nclassic cotton polo", stringAttr(t, fake.put.Item["search_key"]))
}

func TestDynamoOrderStore_GetOrder(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	want := sampleOrder("ord-1", created, model.OrderStatusPending)
	fake := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item(t, want)}}

	got, err := NewDynamoOrderStore(fake, "orders").GetOrder(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDynamoOrderStore_GetOrderMissing(t *testing.T) {
	_, err := NewDynamoOrderStore(&fakeDynamo{}, "orders").GetOrder(context.Background(), "ord-404")
	assert.ErrorIs(t, err, service.ErrOrderNotFound)
}

func TestDynamoOrderStore_SaveTransitionIsConditional(t *testing.T) {
	fake := &fakeDynamo{}
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	order := sampleOrder("ord-1", created, model.OrderStatusApproved)
	event := model.OrderEvent{Status: model.OrderStatusApproved, ActorID: "manager-1", OccurredAt: created.Add(time.Hour)}

	require.NoError(t, NewDynamoOrderStore(fake, "orders").SaveTransition(context.Background(), order, model.OrderStatusPending, event))

	in := fake.update
	require.NotNil(t, in)
	assert.Equal(t, "attribute_exists(PK) AND #status = :expected", aws.ToString(in.ConditionExpression))
	assert.Contains(t, aws.ToString(in.UpdateExpression), "list_append(#history, :event)")
	assert.Equal(t, "pending", stringAttr(t, in.ExpressionAttributeValues[":expected"]))
	assert.Equal(t, "approved", stringAttr(t, in.ExpressionAttributeValues[":to"]))
	assert.Equal(t, "STATUS#approved", stringAttr(t, in.ExpressionAttributeValues[":gsi2pk"]))
	assert.Equal(t, types.ReturnValuesOnConditionCheckFailureAllOld, in.ReturnValuesOnConditionCheckFailure)
}

func TestDynamoOrderStore_SaveTransitionFailures(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	order := sampleOrder("ord-1", created, model.OrderStatusApproved)
	event := model.OrderEvent{Status: model.OrderStatusApproved, OccurredAt: created}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "status moved",
			err: &types.ConditionalCheckFailedException{Item: map[string]types.AttributeValue{
				"status": &types.AttributeValueMemberS{Value: "rejected"},
			}},
			want: service.ErrConcurrentUpdate,
		},
		{
			name: "item missing",
			err:  &types.ConditionalCheckFailedException{},
			want: service.ErrOrderNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeDynamo{updateErr: tt.err}
			err := NewDynamoOrderStore(fake, "orders").SaveTransition(context.Background(), order, model.OrderStatusPending, event)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("throttled", func(t *testing.T) {
		fake := &fakeDynamo{updateErr: errors.New("ProvisionedThroughputExceeded")}
		err := NewDynamoOrderStore(fake, "orders").SaveTransition(context.Background(), order, model.OrderStatusPending, event)
		require.Error(t, err)
		assert.NotErrorIs(t, err, service.ErrConcurrentUpdate)
		assert.NotErrorIs(t, err, service.ErrOrderNotFound)
	})

	t.Run("event does not match order", func(t *testing.T) {
		fake := &fakeDynamo{}
		bad := event
		bad.Status = model.OrderStatusCutting
		err := NewDynamoOrderStore(fake, "orders").SaveTransition(context.Background(), order, model.OrderStatusPending, bad)
		assert.Error(t, err)
		assert.Nil(t, fake.update)
	})
}

func TestDynamoOrderStore_ListOrdersByStatusMergesNewestFirst(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeDynamo{pages: map[string][]map[string]types.AttributeValue{
		"STATUS#approved": {item(t, sampleOrder("old", base, model.OrderStatusApproved))},
		"STATUS#shipped":  {item(t, sampleOrder("new", base.Add(time.Hour), model.OrderStatusShipped))},
	}}

	orders, err := NewDynamoOrderStore(fake, "orders").ListOrdersByStatus(context.Background(), model.OrderStatusApproved, model.OrderStatusShipped)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "new", orders[0].ID)
	assert.Equal(t, "old", orders[1].ID)

	require.Len(t, fake.queries, 2)
	assert.Equal(t, "GSI2", aws.ToString(fake.queries[0].IndexName))
	assert.False(t, aws.ToBool(fake.queries[0].ScanIndexForward))
}

func TestDynamoOrderStore_ListOrdersByBuyer(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeDynamo{pages: map[string][]map[string]types.AttributeValue{
		"BUYER#buyer-1": {item(t, sampleOrder("ord-1", base, model.OrderStatusPending))},
	}}

	orders, err := NewDynamoOrderStore(fake, "orders").ListOrdersByBuyer(context.Background(), "buyer-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "GSI1", aws.ToString(fake.queries[0].IndexName))
}

func TestDynamoOrderStore_ListOrdersFollowsPages(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeDynamo{scanPages: [][]map[string]types.AttributeValue{
		{item(t, sampleOrder("a", base, model.OrderStatusPending))},
		{item(t, sampleOrder("b", base.Add(time.Minute), model.OrderStatusPending))},
	}}

	orders, total, err := NewDynamoOrderStore(fake, "orders").ListOrders(context.Background(), firstPage(t, service.OrderFilters{}))
	require.NoError(t, err)
	assert.Equal(t, 2, fake.scans)
	assert.Equal(t, 2, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "b", orders[0].ID)
	assert.Equal(t, "SK = :sk", aws.ToString(fake.scanIn.FilterExpression))
}

func TestDynamoOrderStore_ListOrdersPages(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var page []map[string]types.AttributeValue
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		page = append(page, item(t, sampleOrder(id, base.Add(time.Duration(i)*time.Minute), model.OrderStatusPending)))
	}
	store := NewDynamoOrderStore(&fakeDynamo{scanPages: [][]map[string]types.AttributeValue{page}}, "orders")

	orders, total, err := store.ListOrders(context.Background(), firstPage(t, service.OrderFilters{Page: 2, Limit: 2}))
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "c", orders[0].ID)
	assert.Equal(t, "b", orders[1].ID)

	store = NewDynamoOrderStore(&fakeDynamo{scanPages: [][]map[string]types.AttributeValue{page}}, "orders")
	orders, total, err = store.ListOrders(context.Background(), firstPage(t, service.OrderFilters{Page: 9, Limit: 2}))
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, orders)
}

func TestDynamoOrderStore_ListOrdersSearchFilter(t *testing.T) {
	fake := &fakeDynamo{scanPages: [][]map[string]types.AttributeValue{nil}}

	_, _, err := NewDynamoOrderStore(fake, "orders").ListOrders(context.Background(), firstPage(t, service.OrderFilters{Search: "Polo"}))
	require.NoError(t, err)
	assert.Equal(t, "SK = :sk AND contains(search_key, :q)", aws.ToString(fake.scanIn.FilterExpression))
	assert.Equal(t, "polo", stringAttr(t, fake.scanIn.ExpressionAttributeValues[":q"]))
}

func TestDynamoOrderStore_ListOrdersByStatusFilterUsesIndex(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fake := &fakeDynamo{pages: map[string][]map[string]types.AttributeValue{
		"STATUS#approved": {item(t, sampleOrder("ord-1", base, model.OrderStatusApproved))},
	}}

	orders, total, err := NewDynamoOrderStore(fake, "orders").ListOrders(context.Background(),
		firstPage(t, service.OrderFilters{Status: model.OrderStatusApproved, Search: "ORD-1"}))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Zero(t, fake.scans)

	require.Len(t, fake.queries, 1)
	in := fake.queries[0]
	assert.Equal(t, "GSI2", aws.ToString(in.IndexName))
	assert.Equal(t, "contains(search_key, :q)", aws.ToString(in.FilterExpression))
	assert.Equal(t, "ord-1", stringAttr(t, in.ExpressionAttributeValues[":q"]))
}

func firstPage(t *testing.T, f service.OrderFilters) service.OrderFilters {
	t.Helper()
	f, err := f.Normalize()
	require.NoError(t, err)
	return f
}
