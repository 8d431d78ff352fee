package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// FakeObject is one stored object in a FakeStore.
type FakeObject struct {
	Data        []byte
	Metadata    map[string]string
	ContentType string
	ACL         string
}

// FakeStore is an in-memory object store with multipart semantics, used to
// exercise full transfer round trips without a real service. All methods are
// safe for concurrent use; part uploads race in the transfer workers.
type FakeStore struct {
	mu      sync.Mutex
	objects map[string]*FakeObject
	uploads map[string]*fakeUpload
	nextID  int
}

type fakeUpload struct {
	bucket      string
	key         string
	metadata    map[string]string
	contentType string
	acl         string
	parts       map[int32][]byte
	initiated   time.Time
}

// NewFakeStore returns an empty store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		objects: make(map[string]*FakeObject),
		uploads: make(map[string]*fakeUpload),
	}
}

func objKey(bucket, key string) string {
	return bucket + "/" + key
}

// Put seeds an object directly.
func (s *FakeStore) Put(bucket, key string, obj FakeObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objKey(bucket, key)] = &obj
}

// Object returns a stored object, or nil if absent.
func (s *FakeStore) Object(bucket, key string) *FakeObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[objKey(bucket, key)]
}

// PendingUploadCount returns the number of multipart uploads that were
// started but neither completed nor aborted.
func (s *FakeStore) PendingUploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// Client returns a MockS3Client wired to the store. Individual function
// fields can still be overridden after the fact to inject failures.
func (s *FakeStore) Client() *MockS3Client {
	return &MockS3Client{
		HeadObjectFunc:              s.headObject,
		GetObjectFunc:               s.getObject,
		CopyObjectFunc:              s.copyObject,
		CreateMultipartUploadFunc:   s.createMultipartUpload,
		UploadPartFunc:              s.uploadPart,
		UploadPartCopyFunc:          s.uploadPartCopy,
		CompleteMultipartUploadFunc: s.completeMultipartUpload,
		AbortMultipartUploadFunc:    s.abortMultipartUpload,
		ListMultipartUploadsFunc:    s.listMultipartUploads,
	}
}

func (s *FakeStore) headObject(
	_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[objKey(aws.ToString(in.Bucket), aws.ToString(in.Key))]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.Data))),
		ContentType:   aws.String(obj.ContentType),
		Metadata:      copyMap(obj.Metadata),
		ETag:          aws.String(`"fake-etag"`),
		LastModified:  aws.Time(time.Now()),
	}, nil
}

func (s *FakeStore) getObject(
	_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[objKey(aws.ToString(in.Bucket), aws.ToString(in.Key))]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	data := obj.Data
	if in.Range != nil {
		start, end, err := parseRange(aws.ToString(in.Range), int64(len(data)))
		if err != nil {
			return nil, err
		}
		data = data[start : end+1]
	}

	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(string(data))),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      copyMap(obj.Metadata),
	}, nil
}

func (s *FakeStore) copyObject(
	_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options),
) (*s3.CopyObjectOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.objects[aws.ToString(in.CopySource)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	dst := &FakeObject{
		Data:        append([]byte(nil), src.Data...),
		ContentType: aws.ToString(in.ContentType),
		Metadata:    copyMap(src.Metadata),
	}
	if in.MetadataDirective == types.MetadataDirectiveReplace {
		dst.Metadata = copyMap(in.Metadata)
	}
	s.objects[objKey(aws.ToString(in.Bucket), aws.ToString(in.Key))] = dst

	return &s3.CopyObjectOutput{
		CopyObjectResult: &types.CopyObjectResult{ETag: aws.String(`"copy-etag"`)},
	}, nil
}

func (s *FakeStore) createMultipartUpload(
	_ context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := fmt.Sprintf("upload-%d", s.nextID)
	s.uploads[id] = &fakeUpload{
		bucket:      aws.ToString(in.Bucket),
		key:         aws.ToString(in.Key),
		metadata:    copyMap(in.Metadata),
		contentType: aws.ToString(in.ContentType),
		acl:         string(in.ACL),
		parts:       make(map[int32][]byte),
		initiated:   time.Now(),
	}
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String(id)}, nil
}

func (s *FakeStore) uploadPart(
	_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	up, ok := s.uploads[aws.ToString(in.UploadId)]
	if !ok {
		return nil, &types.NoSuchUpload{}
	}
	n := aws.ToInt32(in.PartNumber)
	up.parts[n] = data
	return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf(`"part-%d"`, n))}, nil
}

func (s *FakeStore) uploadPartCopy(
	_ context.Context, in *s3.UploadPartCopyInput, _ ...func(*s3.Options),
) (*s3.UploadPartCopyOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	up, ok := s.uploads[aws.ToString(in.UploadId)]
	if !ok {
		return nil, &types.NoSuchUpload{}
	}
	src, ok := s.objects[aws.ToString(in.CopySource)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	data := src.Data
	if in.CopySourceRange != nil {
		start, end, err := parseRange(aws.ToString(in.CopySourceRange), int64(len(data)))
		if err != nil {
			return nil, err
		}
		data = data[start : end+1]
	}

	n := aws.ToInt32(in.PartNumber)
	up.parts[n] = append([]byte(nil), data...)
	return &s3.UploadPartCopyOutput{
		CopyPartResult: &types.CopyPartResult{ETag: aws.String(fmt.Sprintf(`"part-%d"`, n))},
	}, nil
}

func (s *FakeStore) completeMultipartUpload(
	_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := aws.ToString(in.UploadId)
	up, ok := s.uploads[id]
	if !ok {
		return nil, &types.NoSuchUpload{}
	}

	numbers := make([]int32, 0, len(up.parts))
	for n := range up.parts {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	var data []byte
	for _, n := range numbers {
		data = append(data, up.parts[n]...)
	}

	s.objects[objKey(up.bucket, up.key)] = &FakeObject{
		Data:        data,
		Metadata:    up.metadata,
		ContentType: up.contentType,
		ACL:         up.acl,
	}
	delete(s.uploads, id)

	return &s3.CompleteMultipartUploadOutput{ETag: aws.String(`"complete-etag"`)}, nil
}

func (s *FakeStore) abortMultipartUpload(
	_ context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.uploads, aws.ToString(in.UploadId))
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (s *FakeStore) listMultipartUploads(
	_ context.Context, in *s3.ListMultipartUploadsInput, _ ...func(*s3.Options),
) (*s3.ListMultipartUploadsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var uploads []types.MultipartUpload
	for id, up := range s.uploads {
		if up.bucket != aws.ToString(in.Bucket) {
			continue
		}
		if in.Prefix != nil && !strings.HasPrefix(up.key, aws.ToString(in.Prefix)) {
			continue
		}
		uploads = append(uploads, types.MultipartUpload{
			Key:       aws.String(up.key),
			UploadId:  aws.String(id),
			Initiated: aws.Time(up.initiated),
		})
	}
	sort.Slice(uploads, func(i, j int) bool {
		return aws.ToString(uploads[i].Key) < aws.ToString(uploads[j].Key)
	})

	return &s3.ListMultipartUploadsOutput{
		Uploads:     uploads,
		IsTruncated: aws.Bool(false),
	}, nil
}

func parseRange(spec string, size int64) (int64, int64, error) {
	spec = strings.TrimPrefix(spec, "bytes=")
	dash := strings.Index(spec, "-")
	if dash < 0 {
		return 0, 0, fmt.Errorf("malformed range %q", spec)
	}
	start, err := strconv.ParseInt(spec[:dash], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed range %q", spec)
	}
	end, err := strconv.ParseInt(spec[dash+1:], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed range %q", spec)
	}
	if start < 0 || start > end || start >= size {
		return 0, 0, fmt.Errorf("range %q out of bounds for size %d", spec, size)
	}
	if end >= size {
		end = size - 1
	}
	return start, end, nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
