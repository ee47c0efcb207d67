package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"

	"garment-dashboard/internal/model"
	"garment-dashboard/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	orderMetadataSK = "METADATA"
	buyerIndex      = "GSI1"
	statusIndex     = "GSI2"
	searchKeyAttr   = "search_key"
)

// DynamoDBAPI is the part of the DynamoDB client the order store uses
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// NewDynamoDBClient creates a client for region. A non-empty endpoint points it at
// DynamoDB Local.
func NewDynamoDBClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// DynamoOrderStore keeps each order, history included, in a single item
//
//	PK = ORDER#<id>, SK = METADATA
//	GSI1: BUYER#<buyerId> / <createdAt>
//	GSI2: STATUS#<status> / <createdAt>
//	search_key: lowercase order id and product title
type DynamoOrderStore struct {
	client    DynamoDBAPI
	tableName string
}

// NewDynamoOrderStore creates the DynamoDB order store
func NewDynamoOrderStore(client DynamoDBAPI, tableName string) *DynamoOrderStore {
	return &DynamoOrderStore{client: client, tableName: tableName}
}

func orderPK(id string) string                    { return "ORDER#" + id }
func buyerGSIPK(buyerID string) string            { return "BUYER#" + buyerID }
func statusGSIPK(status model.OrderStatus) string { return "STATUS#" + string(status) }
func createdSortKey(t time.Time) string           { return t.UTC().Format(time.RFC3339Nano) }
func orderKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: orderPK(id)},
		"SK": &types.AttributeValueMemberS{Value: orderMetadataSK},
	}
}

// CreateOrder writes a new order item; an existing id is refused
func (s *DynamoOrderStore) CreateOrder(ctx context.Context, order *model.Order) error {
	av, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	av["PK"] = &types.AttributeValueMemberS{Value: orderPK(order.ID)}
	av["SK"] = &types.AttributeValueMemberS{Value: orderMetadataSK}
	av["GSI1PK"] = &types.AttributeValueMemberS{Value: buyerGSIPK(order.BuyerID)}
	av["GSI1SK"] = &types.AttributeValueMemberS{Value: createdSortKey(order.CreatedAt)}
	av["GSI2PK"] = &types.AttributeValueMemberS{Value: statusGSIPK(order.Status)}
	av["GSI2SK"] = &types.AttributeValueMemberS{Value: createdSortKey(order.CreatedAt)}
	av[searchKeyAttr] = &types.AttributeValueMemberS{Value: service.SearchKey(order)}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put order: %w", err)
	}
	return nil
}

// GetOrder reads one order with a consistent read
func (s *DynamoOrderStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            orderKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", service.ErrOrderNotFound, id)
	}

	var order model.Order
	if err := attributevalue.UnmarshalMap(out.Item, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &order, nil
}

// ListOrdersByBuyer returns a buyer's orders, newest first
func (s *DynamoOrderStore) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]model.Order, error) {
	return s.queryIndex(ctx, buyerIndex, "GSI1PK", buyerGSIPK(buyerID), nil)
}

// ListOrdersByStatus returns orders in any of statuses, newest first
func (s *DynamoOrderStore) ListOrdersByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	orders := []model.Order{}
	for _, status := range statuses {
		page, err := s.queryIndex(ctx, statusIndex, "GSI2PK", statusGSIPK(status), nil)
		if err != nil {
			return nil, err
		}
		orders = append(orders, page...)
	}
	sortNewestFirst(orders)
	return orders, nil
}

// ListOrders returns one page of the orders matching filters, newest first. A
// status filter is served by GSI2, anything else by a scan; the search is applied
// by DynamoDB against the search_key attribute and paging happens here.
func (s *DynamoOrderStore) ListOrders(ctx context.Context, filters service.OrderFilters) ([]model.Order, int, error) {
	search := searchFilter(filters.Search)

	var orders []model.Order
	var err error
	if filters.Status != "" {
		orders, err = s.queryIndex(ctx, statusIndex, "GSI2PK", statusGSIPK(filters.Status), search)
	} else {
		orders, err = s.scanOrders(ctx, search)
	}
	if err != nil {
		return nil, 0, err
	}

	sortNewestFirst(orders)
	start, end := filters.Window(len(orders))
	return orders[start:end], len(orders), nil
}

func (s *DynamoOrderStore) scanOrders(ctx context.Context, filter *itemFilter) ([]model.Order, error) {
	expression := "SK = :sk"
	values := map[string]types.AttributeValue{
		":sk": &types.AttributeValueMemberS{Value: orderMetadataSK},
	}
	if filter != nil {
		expression += " AND " + filter.expression
		maps.Copy(values, filter.values)
	}

	orders := []model.Order{}
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          aws.String(expression),
		ExpressionAttributeValues: values,
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan orders: %w", err)
		}
		var page []model.Order
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal orders: %w", err)
		}
		orders = append(orders, page...)
	}
	return orders, nil
}

// SaveTransition sets the new status and appends event in one conditional update
func (s *DynamoOrderStore) SaveTransition(ctx context.Context, order *model.Order, expected model.OrderStatus, event model.OrderEvent) error {
	if event.Status != order.Status {
		return fmt.Errorf("event status %s does not match order status %s", event.Status, order.Status)
	}

	ev, err := attributevalue.MarshalMap(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	updatedAt, err := attributevalue.Marshal(order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to marshal update time: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 orderKey(order.ID),
		UpdateExpression:    aws.String("SET #status = :to, #updated = :updated, GSI2PK = :gsi2pk, #history = list_append(#history, :event)"),
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#status":  "status",
			"#updated": "updated_at",
			"#history": "history",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":to":       &types.AttributeValueMemberS{Value: string(order.Status)},
			":expected": &types.AttributeValueMemberS{Value: string(expected)},
			":updated":  updatedAt,
			":gsi2pk":   &types.AttributeValueMemberS{Value: statusGSIPK(order.Status)},
			":event":    &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberM{Value: ev}}},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return fmt.Errorf("%w: %s", service.ErrOrderNotFound, order.ID)
			}
			return fmt.Errorf("%w: expected %s", service.ErrConcurrentUpdate, expected)
		}
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (s *DynamoOrderStore) queryIndex(ctx context.Context, index, keyAttr, key string, filter *itemFilter) ([]model.Order, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": keyAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: key},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if filter != nil {
		input.FilterExpression = aws.String(filter.expression)
		maps.Copy(input.ExpressionAttributeValues, filter.values)
	}

	orders := []model.Order{}
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", index, err)
		}
		var page []model.Order
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal orders: %w", err)
		}
		orders = append(orders, page...)
	}
	return orders, nil
}

// itemFilter is a filter expression with its values
type itemFilter struct {
	expression string
	values     map[string]types.AttributeValue
}

func searchFilter(search string) *itemFilter {
	if search == "" {
		return nil
	}
	return &itemFilter{
		expression: "contains(" + searchKeyAttr + ", :q)",
		values: map[string]types.AttributeValue{
			":q": &types.AttributeValueMemberS{Value: strings.ToLower(search)},
		},
	}
}

func sortNewestFirst(orders []model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
